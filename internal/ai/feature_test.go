package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestCacheKey_DeterministicAndOrderSensitive(t *testing.T) {
	a := CacheKey(FeatureSummary, "issue-1")
	b := CacheKey(FeatureSummary, "issue-1")
	if a != b {
		t.Fatalf("same inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(a))
	}

	sum := sha256.Sum256([]byte("summary:issue-1"))
	if want := hex.EncodeToString(sum[:]); a != want {
		t.Fatalf("key layout changed: got %s want %s", a, want)
	}

	if CacheKey(FeatureLabels, "x", "y") == CacheKey(FeatureLabels, "y", "x") {
		t.Fatalf("key must be order-sensitive")
	}
	if CacheKey(FeatureSummary, "issue-1") == CacheKey(FeatureLabels, "issue-1") {
		t.Fatalf("key must include the feature name")
	}
}

func TestKnownFeature(t *testing.T) {
	for _, f := range []Feature{FeatureSummary, FeatureSuggestion, FeatureLabels, FeatureDuplicates, FeatureComments} {
		if !KnownFeature(f) {
			t.Fatalf("feature %s should be known", f)
		}
	}
	if KnownFeature(Feature("telepathy")) {
		t.Fatalf("unexpected feature accepted")
	}
}

func TestStripFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, c := range cases {
		if got := StripFence(c.in); got != c.want {
			t.Fatalf("StripFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseJSON_FencedAndPlain(t *testing.T) {
	type shape struct {
		Reasoning string `json:"reasoning"`
	}
	got, err := ParseJSON[shape]("```json\n{\"reasoning\":\"ok\"}\n```")
	if err != nil {
		t.Fatalf("ParseJSON fenced: %v", err)
	}
	if got.Reasoning != "ok" {
		t.Fatalf("unexpected value: %+v", got)
	}
	got, err = ParseJSON[shape]("{\"reasoning\":\"plain\"}")
	if err != nil {
		t.Fatalf("ParseJSON plain: %v", err)
	}
	if got.Reasoning != "plain" {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestParseJSON_MalformedIsGenerationFailed(t *testing.T) {
	type shape struct{}
	if _, err := ParseJSON[shape]("I refuse to answer in JSON"); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestRateLimitError_MatchesSentinel(t *testing.T) {
	var err error = &RateLimitError{Feature: FeatureSummary}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("RateLimitError should match ErrRateLimited")
	}
}

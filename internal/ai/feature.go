// Package ai implements the AI gateway: a sha256-keyed response cache, a
// DB-backed counted-window rate limiter, a pluggable text-generation backend,
// and the per-feature request flows built on top of them.
//
// Every feature request follows the same composite flow: rate limit → cache →
// fetch domain data → build prompts → generate → parse and defensively filter
// → record usage → write cache. Usage is recorded only after a successful
// generation, so failed calls never consume quota.
package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Feature identifies one AI capability. Feature names are stored verbatim in
// the cache and usage-log tables.
type Feature string

const (
	FeatureSummary    Feature = "summary"
	FeatureSuggestion Feature = "suggestion"
	FeatureLabels     Feature = "labels"
	FeatureDuplicates Feature = "duplicates"
	FeatureComments   Feature = "comments"
)

// cacheTTL is the per-feature response cache lifetime.
var cacheTTL = map[Feature]time.Duration{
	FeatureSummary:    30 * time.Minute,
	FeatureSuggestion: 15 * time.Minute,
	FeatureLabels:     60 * time.Minute,
	FeatureDuplicates: 10 * time.Minute,
	FeatureComments:   30 * time.Minute,
}

// rateLimit is one feature's request budget over a trailing window.
type rateLimit struct {
	Requests int64
	Window   time.Duration
}

// rateLimits caps requests per user per feature.
var rateLimits = map[Feature]rateLimit{
	FeatureSummary:    {Requests: 10, Window: 60 * time.Minute},
	FeatureSuggestion: {Requests: 20, Window: 60 * time.Minute},
	FeatureLabels:     {Requests: 15, Window: 60 * time.Minute},
	FeatureDuplicates: {Requests: 10, Window: 60 * time.Minute},
	FeatureComments:   {Requests: 15, Window: 60 * time.Minute},
}

// KnownFeature reports whether f is one of the supported features.
func KnownFeature(f Feature) bool {
	_, ok := rateLimits[f]
	return ok
}

// CacheKey derives the deterministic cache key for a feature and its
// identifying arguments: hex(sha256(feature ":" part1 ":" part2 ...)).
// Order of parts is significant.
func CacheKey(feature Feature, parts ...string) string {
	joined := strings.Join(append([]string{string(feature)}, parts...), ":")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

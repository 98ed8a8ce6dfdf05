package search

import (
	"testing"
)

func TestNewIndex_SkipsUnusableDocs(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "", Text: "no identity"},
		{ID: "blank", Text: "   "},
		{ID: "punct", Text: "!!! ???"},
		{ID: "ok", Text: "login button crashes on submit"},
	})
	got := idx.TopK("login crashes", 10)
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only doc 'ok', got %#v", got)
	}
}

func TestTopK_EmptyIndexAndEmptyQuery(t *testing.T) {
	empty := NewIndex(nil)
	if got := empty.TopK("anything", 3); got != nil {
		t.Fatalf("expected nil from empty index, got %#v", got)
	}
	idx := NewIndex([]Doc{{ID: "a", Text: "some text here"}})
	if got := idx.TopK("   ", 3); got != nil {
		t.Fatalf("expected nil for blank query, got %#v", got)
	}
}

func TestTopK_RanksByJaccard(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "exact", Text: "payment fails on checkout"},
		{ID: "partial", Text: "payment page styling broken on mobile"},
		{ID: "unrelated", Text: "dark mode toggle missing"},
	})

	got := idx.TopK("payment fails on checkout", 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 overlapping docs, got %d", len(got))
	}
	if got[0].ID != "exact" {
		t.Fatalf("expected exact match ranked first, got %s", got[0].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("expected strictly higher score for exact match: %v vs %v", got[0].Score, got[1].Score)
	}
}

func TestTopK_KCapsResults(t *testing.T) {
	docs := []Doc{
		{ID: "a", Text: "server timeout on upload"},
		{ID: "b", Text: "upload fails with timeout"},
		{ID: "c", Text: "timeout during large upload"},
	}
	idx := NewIndex(docs)
	got := idx.TopK("upload timeout", 2)
	if len(got) != 2 {
		t.Fatalf("expected k=2 results, got %d", len(got))
	}
}

func TestTopK_DeterministicTieBreak(t *testing.T) {
	// Identical texts tie on score and length, so ID decides.
	idx := NewIndex([]Doc{
		{ID: "zzz", Text: "duplicate report text"},
		{ID: "aaa", Text: "duplicate report text"},
	})
	got := idx.TopK("duplicate report", 2)
	if len(got) != 2 || got[0].ID != "aaa" || got[1].ID != "zzz" {
		t.Fatalf("expected ID tie-break aaa,zzz got %#v", got)
	}
}

func TestWithStopwords_RemovedFromBothSides(t *testing.T) {
	idx := NewIndex(
		[]Doc{{ID: "a", Text: "the login the page"}},
		WithStopwords([]string{"the", ""}),
	)
	got := idx.TopK("the the the", 3)
	if got != nil {
		t.Fatalf("query of only stopwords should match nothing, got %#v", got)
	}
	got = idx.TopK("login page", 3)
	if len(got) != 1 || got[0].Score != 1.0 {
		t.Fatalf("expected perfect match after stopword removal, got %#v", got)
	}
}

func TestWithMaxDocs_CapsIndexSize(t *testing.T) {
	docs := []Doc{
		{ID: "a", Text: "alpha issue one"},
		{ID: "b", Text: "alpha issue two"},
		{ID: "c", Text: "alpha issue three"},
	}
	idx := NewIndex(docs, WithMaxDocs(2))
	got := idx.TopK("alpha issue", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 indexed docs, got %d", len(got))
	}
}

func TestWithMinDocRunes_FiltersShortDocs(t *testing.T) {
	idx := NewIndex(
		[]Doc{
			{ID: "short", Text: "tiny"},
			{ID: "long", Text: "a sufficiently descriptive issue title"},
		},
		WithMinDocRunes(10),
	)
	got := idx.TopK("descriptive issue title tiny", 10)
	if len(got) != 1 || got[0].ID != "long" {
		t.Fatalf("expected only long doc, got %#v", got)
	}
}

func TestNormalizeWhitespace_CollapsesRuns(t *testing.T) {
	idx := NewIndex([]Doc{{ID: "a", Text: "line one\n\n\t line   two"}})
	got := idx.TopK("line two", 1)
	if len(got) != 1 {
		t.Fatalf("expected a match, got %#v", got)
	}
	if got[0].Snippet != "line one line two" {
		t.Fatalf("unexpected snippet: %q", got[0].Snippet)
	}
}

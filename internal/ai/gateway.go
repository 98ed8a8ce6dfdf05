// Package ai – Gateway.
//
// Gateway composes the cache, the rate limiter, and the text generator into
// the five feature flows. All public methods are OpenTelemetry-instrumented;
// spans carry the feature name and caller identifiers.
//
// Results never store a "cached" marker: the cache holds the bare payload and
// each method reports cache hits out-of-band, so the HTTP layer can tag the
// response without polluting stored entries.
package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
	"github.com/tbourn/go-issue-board/internal/search"
)

const (
	// duplicateCandidateLimit bounds the recent-issue pool scanned per query.
	duplicateCandidateLimit = 100
	// duplicatePromptLimit bounds how many preselected candidates reach the
	// prompt, keeping its size stable on large projects.
	duplicatePromptLimit = 20
)

// Gateway runs the per-feature AI flows against the database and the
// configured text-generation backend.
type Gateway struct {
	DB     *gorm.DB
	Gen    TextGenerator
	Cache  *Cache
	Limits *Limiter
}

// NewGateway wires a Gateway with cache and limiter sharing db.
func NewGateway(db *gorm.DB, gen TextGenerator) *Gateway {
	return &Gateway{
		DB:     db,
		Gen:    gen,
		Cache:  &Cache{DB: db},
		Limits: &Limiter{DB: db},
	}
}

// checkLimit converts a failed rate-limit check into a *RateLimitError.
func (g *Gateway) checkLimit(ctx context.Context, userID string, feature Feature) error {
	rl, err := g.Limits.Check(ctx, userID, feature)
	if err != nil {
		return err
	}
	if !rl.Allowed {
		return &RateLimitError{Feature: feature, Remaining: rl.Remaining, ResetAt: rl.ResetAt}
	}
	return nil
}

func (g *Gateway) loadComments(ctx context.Context, issueID string) ([]CommentForPrompt, error) {
	rows, err := repo.ListComments(ctx, g.DB, issueID)
	if err != nil {
		return nil, err
	}
	out := make([]CommentForPrompt, 0, len(rows))
	for _, c := range rows {
		out = append(out, CommentForPrompt{
			Author:    c.AuthorID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

//
// Summary
//

// Summarize produces a buffered issue summary: rate limit → cache → fetch →
// generate → record usage → cache → return.
func (g *Gateway) Summarize(ctx context.Context, userID, issueID string) (summary string, cached bool, err error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "Summarize",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("issue.id", issueID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureSummary); err != nil {
		return "", false, err
	}
	if payload, ok, err := g.Cache.Get(ctx, FeatureSummary, issueID); err != nil {
		return "", false, err
	} else if ok {
		return payload, true, nil
	}

	issue, err := repo.GetIssue(ctx, g.DB, issueID)
	if err != nil {
		return "", false, err
	}
	comments, err := g.loadComments(ctx, issueID)
	if err != nil {
		return "", false, err
	}

	system, user := SummaryPrompt(issue, comments)
	text, tokens, err := g.Gen.Generate(ctx, system, user, GenOptions{MaxTokens: 512})
	if err != nil {
		return "", false, err
	}

	g.record(ctx, userID, FeatureSummary, &issueID, tokens)
	g.cachePayload(ctx, FeatureSummary, text, issueID)
	return text, false, nil
}

// SummarizeStream streams the issue summary through fn fragment by fragment.
// A cache hit delivers the whole cached text in a single fn call and reports
// cached=true. On a fresh generation the accumulated text is cached and usage
// recorded after the stream completes.
func (g *Gateway) SummarizeStream(ctx context.Context, userID, issueID string, fn func(chunk string) error) (cached bool, err error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "SummarizeStream",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("issue.id", issueID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureSummary); err != nil {
		return false, err
	}
	if payload, ok, err := g.Cache.Get(ctx, FeatureSummary, issueID); err != nil {
		return false, err
	} else if ok {
		return true, fn(payload)
	}

	issue, err := repo.GetIssue(ctx, g.DB, issueID)
	if err != nil {
		return false, err
	}
	comments, err := g.loadComments(ctx, issueID)
	if err != nil {
		return false, err
	}

	system, user := SummaryPrompt(issue, comments)
	var full strings.Builder
	err = g.Gen.Stream(ctx, system, user, GenOptions{MaxTokens: 512}, func(chunk string) error {
		full.WriteString(chunk)
		return fn(chunk)
	})
	if err != nil {
		return false, err
	}

	g.record(ctx, userID, FeatureSummary, &issueID, 0)
	g.cachePayload(ctx, FeatureSummary, full.String(), issueID)
	return false, nil
}

//
// Next actions
//

// Suggestion is one recommended next action.
type Suggestion struct {
	Action   string `json:"action"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// SuggestionResult is the next-actions payload.
type SuggestionResult struct {
	Suggestions     []Suggestion `json:"suggestions"`
	Blockers        []string     `json:"blockers"`
	EstimatedEffort string       `json:"estimatedEffort"`
}

// SuggestActions analyzes the issue state and proposes concrete next steps.
func (g *Gateway) SuggestActions(ctx context.Context, userID, issueID string) (*SuggestionResult, bool, error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "SuggestActions",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("issue.id", issueID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureSuggestion); err != nil {
		return nil, false, err
	}
	if payload, ok, err := g.Cache.Get(ctx, FeatureSuggestion, issueID); err != nil {
		return nil, false, err
	} else if ok {
		out, err := ParseJSON[SuggestionResult](payload)
		if err != nil {
			return nil, false, err
		}
		return &out, true, nil
	}

	issue, err := repo.GetIssue(ctx, g.DB, issueID)
	if err != nil {
		return nil, false, err
	}
	statusName := issue.StatusID
	if st, serr := repo.GetStatus(ctx, g.DB, issue.StatusID); serr == nil {
		statusName = st.Name
	}
	subtasks, err := repo.ListSubtasks(ctx, g.DB, issueID)
	if err != nil {
		return nil, false, err
	}

	system, user := SuggestionPrompt(issue, statusName, subtasks)
	text, tokens, err := g.Gen.Generate(ctx, system, user, GenOptions{MaxTokens: 1024})
	if err != nil {
		return nil, false, err
	}
	out, err := ParseJSON[SuggestionResult](text)
	if err != nil {
		return nil, false, err
	}

	g.record(ctx, userID, FeatureSuggestion, &issueID, tokens)
	g.cacheJSON(ctx, FeatureSuggestion, out, issueID)
	return &out, false, nil
}

//
// Label suggestion
//

// SuggestedLabel is one recommended existing label.
type SuggestedLabel struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// LabelSuggestionResult is the label suggestion payload.
type LabelSuggestionResult struct {
	SuggestedLabels []SuggestedLabel `json:"suggestedLabels"`
	Reasoning       string           `json:"reasoning"`
}

// SuggestLabels recommends labels from the project's existing set. Suggested
// IDs not present in that set are dropped before caching or returning.
func (g *Gateway) SuggestLabels(ctx context.Context, userID, issueID, projectID string) (*LabelSuggestionResult, bool, error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "SuggestLabels",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("issue.id", issueID),
			attribute.String("project.id", projectID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureLabels); err != nil {
		return nil, false, err
	}
	if payload, ok, err := g.Cache.Get(ctx, FeatureLabels, issueID); err != nil {
		return nil, false, err
	} else if ok {
		out, err := ParseJSON[LabelSuggestionResult](payload)
		if err != nil {
			return nil, false, err
		}
		return &out, true, nil
	}

	issue, err := repo.GetIssue(ctx, g.DB, issueID)
	if err != nil {
		return nil, false, err
	}
	labels, err := repo.ListLabels(ctx, g.DB, projectID)
	if err != nil {
		return nil, false, err
	}
	if len(labels) == 0 {
		return &LabelSuggestionResult{
			SuggestedLabels: []SuggestedLabel{},
			Reasoning:       "the project has no labels to choose from",
		}, false, nil
	}

	system, user := LabelsPrompt(issue, labels)
	text, tokens, err := g.Gen.Generate(ctx, system, user, GenOptions{MaxTokens: 512})
	if err != nil {
		return nil, false, err
	}
	out, err := ParseJSON[LabelSuggestionResult](text)
	if err != nil {
		return nil, false, err
	}

	// Defensive filtering: drop hallucinated label IDs.
	valid := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		valid[l.ID] = struct{}{}
	}
	kept := out.SuggestedLabels[:0]
	for _, s := range out.SuggestedLabels {
		if _, ok := valid[s.ID]; ok {
			kept = append(kept, s)
		}
	}
	out.SuggestedLabels = kept

	g.record(ctx, userID, FeatureLabels, &issueID, tokens)
	g.cacheJSON(ctx, FeatureLabels, out, issueID)
	return &out, false, nil
}

//
// Duplicate detection
//

// DuplicateQuery describes the issue text to check against a project.
type DuplicateQuery struct {
	Title          string
	Description    string
	ProjectID      string
	ExcludeIssueID string
}

// DuplicateCandidate is one suspected duplicate.
type DuplicateCandidate struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

// DuplicateResult is the duplicate detection payload.
type DuplicateResult struct {
	Duplicates        []DuplicateCandidate `json:"duplicates"`
	IsLikelyDuplicate bool                 `json:"isLikelyDuplicate"`
	Recommendation    string               `json:"recommendation"`
}

// DetectDuplicates checks the query text against the project's recent issues.
// Candidates are preselected with an in-memory Jaccard index so prompt size
// stays bounded; reported issue IDs outside the candidate set are dropped.
func (g *Gateway) DetectDuplicates(ctx context.Context, userID string, q DuplicateQuery) (*DuplicateResult, bool, error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "DetectDuplicates",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("project.id", q.ProjectID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureDuplicates); err != nil {
		return nil, false, err
	}
	// The description is part of the key: same-title queries with different
	// bodies must not replay each other's cached verdicts.
	keyParts := []string{q.ProjectID, q.Title, q.Description, q.ExcludeIssueID}
	if payload, ok, err := g.Cache.Get(ctx, FeatureDuplicates, keyParts...); err != nil {
		return nil, false, err
	} else if ok {
		out, err := ParseJSON[DuplicateResult](payload)
		if err != nil {
			return nil, false, err
		}
		return &out, true, nil
	}

	recent, err := repo.ListRecentIssues(ctx, g.DB, q.ProjectID, q.ExcludeIssueID, duplicateCandidateLimit)
	if err != nil {
		return nil, false, err
	}
	if len(recent) == 0 {
		return &DuplicateResult{
			Duplicates:     []DuplicateCandidate{},
			Recommendation: "no existing issues to compare against",
		}, false, nil
	}

	candidates := preselectCandidates(q, recent)

	system, user := DuplicatesPrompt(q.Title, q.Description, candidates)
	text, tokens, err := g.Gen.Generate(ctx, system, user, GenOptions{MaxTokens: 1024})
	if err != nil {
		return nil, false, err
	}
	out, err := ParseJSON[DuplicateResult](text)
	if err != nil {
		return nil, false, err
	}

	// Defensive filtering: drop hallucinated issue IDs.
	valid := make(map[string]struct{}, len(candidates))
	for _, is := range candidates {
		valid[is.ID] = struct{}{}
	}
	kept := out.Duplicates[:0]
	for _, d := range out.Duplicates {
		if _, ok := valid[d.ID]; ok {
			kept = append(kept, d)
		}
	}
	out.Duplicates = kept

	g.record(ctx, userID, FeatureDuplicates, nil, tokens)
	g.cacheJSON(ctx, FeatureDuplicates, out, keyParts...)
	return &out, false, nil
}

// preselectCandidates ranks recent issues by Jaccard similarity against the
// query text and keeps the best few. When nothing overlaps (e.g. disjoint
// vocabulary) it falls back to the most recent issues.
func preselectCandidates(q DuplicateQuery, recent []domain.Issue) []domain.Issue {
	if len(recent) <= duplicatePromptLimit {
		return recent
	}

	docs := make([]search.Doc, 0, len(recent))
	byID := make(map[string]domain.Issue, len(recent))
	for _, is := range recent {
		docs = append(docs, search.Doc{ID: is.ID, Text: is.Title + " " + is.Description})
		byID[is.ID] = is
	}
	idx := search.NewIndex(docs)

	query := strings.TrimSpace(q.Title + " " + q.Description)
	ranked := idx.TopK(query, duplicatePromptLimit)
	if len(ranked) == 0 {
		return recent[:duplicatePromptLimit]
	}

	out := make([]domain.Issue, 0, len(ranked))
	for _, r := range ranked {
		if is, ok := byID[r.ID]; ok {
			out = append(out, is)
		}
	}
	return out
}

//
// Comment summary
//

// CommentSummaryResult is the discussion summary payload.
type CommentSummaryResult struct {
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"keyPoints"`
	Decisions     []string `json:"decisions"`
	OpenQuestions []string `json:"openQuestions"`
	Participants  []string `json:"participants"`
}

// SummarizeComments distills an issue's discussion thread.
func (g *Gateway) SummarizeComments(ctx context.Context, userID, issueID string) (*CommentSummaryResult, bool, error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "SummarizeComments",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("issue.id", issueID),
		),
	)
	defer span.End()

	if err := g.checkLimit(ctx, userID, FeatureComments); err != nil {
		return nil, false, err
	}
	if payload, ok, err := g.Cache.Get(ctx, FeatureComments, issueID); err != nil {
		return nil, false, err
	} else if ok {
		out, err := ParseJSON[CommentSummaryResult](payload)
		if err != nil {
			return nil, false, err
		}
		return &out, true, nil
	}

	// Existence check keeps 404 semantics even for comment-less issues.
	if _, err := repo.GetIssue(ctx, g.DB, issueID); err != nil {
		return nil, false, err
	}
	comments, err := g.loadComments(ctx, issueID)
	if err != nil {
		return nil, false, err
	}
	if len(comments) == 0 {
		return &CommentSummaryResult{
			Summary:       "the issue has no comments yet",
			KeyPoints:     []string{},
			Decisions:     []string{},
			OpenQuestions: []string{},
			Participants:  []string{},
		}, false, nil
	}

	system, user := CommentsPrompt(comments)
	text, tokens, err := g.Gen.Generate(ctx, system, user, GenOptions{MaxTokens: 1024})
	if err != nil {
		return nil, false, err
	}
	out, err := ParseJSON[CommentSummaryResult](text)
	if err != nil {
		return nil, false, err
	}

	g.record(ctx, userID, FeatureComments, &issueID, tokens)
	g.cacheJSON(ctx, FeatureComments, out, issueID)
	return &out, false, nil
}

// Usage reports the caller's aggregated AI activity.
func (g *Gateway) Usage(ctx context.Context, userID string) (UsageStats, error) {
	tr := otel.Tracer("ai/Gateway")
	ctx, span := tr.Start(ctx, "Usage",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return g.Limits.Stats(ctx, userID)
}

// SweepCache removes expired cache rows. Run periodically.
func (g *Gateway) SweepCache(ctx context.Context) (int64, error) {
	return g.Cache.CleanupExpired(ctx)
}

// SweepUsage removes usage rows older than retention. Run periodically.
func (g *Gateway) SweepUsage(ctx context.Context, retention time.Duration) (int64, error) {
	return repo.DeleteAIUsageBefore(ctx, g.DB, time.Now().UTC().Add(-retention))
}

// record appends a usage row. Bookkeeping failures after a successful
// generation are logged and swallowed; the caller already has its result.
func (g *Gateway) record(ctx context.Context, userID string, feature Feature, issueID *string, tokens int) {
	if err := g.Limits.Record(ctx, userID, feature, issueID, tokens); err != nil {
		log.Warn().Err(err).Str("feature", string(feature)).Str("user_id", userID).
			Msg("ai usage record failed")
	}
}

// cachePayload writes a serialized payload to the cache, logging failures.
func (g *Gateway) cachePayload(ctx context.Context, feature Feature, payload string, keyParts ...string) {
	if err := g.Cache.Set(ctx, feature, payload, keyParts...); err != nil {
		log.Warn().Err(err).Str("feature", string(feature)).Msg("ai cache write failed")
	}
}

// cacheJSON serializes a bare result payload and writes it to the cache.
func (g *Gateway) cacheJSON(ctx context.Context, feature Feature, result any, keyParts ...string) {
	raw, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Str("feature", string(feature)).Msg("ai cache marshal failed")
		return
	}
	g.cachePayload(ctx, feature, string(raw), keyParts...)
}

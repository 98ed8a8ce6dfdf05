package ai

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/repo"
)

// Cache is the sha256-keyed response cache over the ai_response_cache table.
// It is payload-agnostic: callers serialize results to JSON before Set and
// parse them after Get.
type Cache struct {
	DB *gorm.DB

	// Now allows tests to pin the clock. Defaults to time.Now.
	Now func() time.Time
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Get returns the cached payload for (feature, keyParts...) or ok=false.
// Entries at or past expiry are deleted as a side effect (lazy expiration).
func (c *Cache) Get(ctx context.Context, feature Feature, keyParts ...string) (string, bool, error) {
	key := CacheKey(feature, keyParts...)
	entry, err := repo.GetAICache(ctx, c.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !entry.ExpiresAt.After(c.now()) {
		if derr := repo.DeleteAICache(ctx, c.DB, key); derr != nil {
			return "", false, derr
		}
		return "", false, nil
	}
	return entry.Response, true, nil
}

// Set upserts the payload under (feature, keyParts...) with expiry now+TTL.
// A repeated write refreshes both payload and expiry.
func (c *Cache) Set(ctx context.Context, feature Feature, response string, keyParts ...string) error {
	ttl, ok := cacheTTL[feature]
	if !ok {
		return ErrUnknownFeature
	}
	key := CacheKey(feature, keyParts...)
	return repo.UpsertAICache(ctx, c.DB, key, string(feature), response, c.now().Add(ttl))
}

// Invalidate unconditionally removes one cache entry.
func (c *Cache) Invalidate(ctx context.Context, feature Feature, keyParts ...string) error {
	return repo.DeleteAICache(ctx, c.DB, CacheKey(feature, keyParts...))
}

// InvalidateIssue removes every issue-keyed cache entry for one issue, used
// after issue mutations. Duplicates is keyed on query text, not the issue,
// so it is left to expire on its own short TTL.
func (c *Cache) InvalidateIssue(ctx context.Context, issueID string) error {
	for _, f := range []Feature{FeatureSummary, FeatureSuggestion, FeatureLabels, FeatureComments} {
		if err := c.Invalidate(ctx, f, issueID); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpired bulk-removes expired entries and returns how many were
// deleted. Called by the periodic sweep.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredAICache(ctx, c.DB, c.now())
}

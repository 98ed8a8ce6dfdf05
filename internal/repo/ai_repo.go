// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the AI
// response cache and the usage log that backs the rate limiter.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// GetAICache returns the cache row for key, expired or not, or ErrNotFound.
// Expiry policy lives in the gateway; the repo only reads rows.
func GetAICache(ctx context.Context, db *gorm.DB, key string) (*domain.AICacheEntry, error) {
	var e domain.AICacheEntry
	err := db.WithContext(ctx).
		Where("cache_key = ?", key).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertAICache inserts or replaces the cache row for key.
func UpsertAICache(ctx context.Context, db *gorm.DB, key, feature, response string, expiresAt time.Time) error {
	e := domain.AICacheEntry{
		CacheKey:  key,
		Feature:   feature,
		Response:  response,
		ExpiresAt: expiresAt,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"feature", "response", "expires_at", "updated_at"}),
		}).
		Create(&e).Error
}

// DeleteAICache removes one cache row. Missing rows are not an error (a
// concurrent lazy-expiry delete may have won).
func DeleteAICache(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).
		Where("cache_key = ?", key).
		Delete(&domain.AICacheEntry{}).Error
}

// DeleteExpiredAICache bulk-removes rows whose expires_at has passed and
// returns the number deleted. Used by the periodic sweep.
func DeleteExpiredAICache(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.AICacheEntry{})
	return res.RowsAffected, res.Error
}

//
// Usage log
//

// InsertAIUsage records one AI request attempt.
func InsertAIUsage(ctx context.Context, db *gorm.DB, userID, feature string, issueID *string, tokensUsed int) error {
	row := domain.AIUsageLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Feature:    feature,
		IssueID:    issueID,
		TokensUsed: tokensUsed,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(&row).Error
}

// CountAIUsageSince returns the number of usage rows for (userID, feature)
// created at or after the since timestamp. The boundary is inclusive: a row
// logged exactly at the window start still counts against the limit.
func CountAIUsageSince(ctx context.Context, db *gorm.DB, userID, feature string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AIUsageLog{}).
		Where("user_id = ? AND feature = ? AND created_at >= ?", userID, feature, since).
		Count(&n).Error
	return n, err
}

// CountAIUsageForUser returns the number of usage rows for userID across all
// features created at or after the since timestamp.
func CountAIUsageForUser(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AIUsageLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

// AIUsageRow is one line of the per-feature usage aggregate.
type AIUsageRow struct {
	Feature     string `json:"feature"`
	Requests    int64  `json:"requests"`
	TotalTokens int64  `json:"total_tokens"`
}

// AIUsageStats aggregates a user's usage rows since a timestamp, grouped by
// feature and ordered by feature name.
func AIUsageStats(ctx context.Context, db *gorm.DB, userID string, since time.Time) ([]AIUsageRow, error) {
	var out []AIUsageRow
	err := db.WithContext(ctx).
		Model(&domain.AIUsageLog{}).
		Select("feature, COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS total_tokens").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("feature").
		Order("feature asc").
		Scan(&out).Error
	return out, err
}

// DeleteAIUsageBefore bulk-removes usage rows older than the cutoff and
// returns the number deleted. Used by the retention sweep.
func DeleteAIUsageBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.AIUsageLog{})
	return res.RowsAffected, res.Error
}

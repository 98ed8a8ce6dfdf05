// Package domain – AI gateway bookkeeping tables.
//
// AICacheEntry and AIUsageLog back the response cache and the counted-window
// rate limiter. Both tables are owned exclusively by the AI gateway; nothing
// else reads or writes them.
package domain

import "time"

// AICacheEntry stores one cached generation result, keyed by a sha256 hex
// digest of the feature name and its identifying arguments. Entries are
// upserted on write, deleted lazily when found expired, and removed in bulk
// by the periodic sweep.
type AICacheEntry struct {
	CacheKey  string    `gorm:"type:char(64);primaryKey"`
	Feature   string    `gorm:"type:varchar(32);not null;index"`
	Response  string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName implements the GORM tabler interface.
func (AICacheEntry) TableName() string { return "ai_response_cache" }

// AIUsageLog records one AI request attempt. Rows are insert-only; the rate
// limiter counts them over a trailing window and a retention sweep deletes
// old ones.
type AIUsageLog struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	UserID     string    `gorm:"type:varchar(64);not null;index:idx_usage_user_feature,priority:1"`
	Feature    string    `gorm:"type:varchar(32);not null;index:idx_usage_user_feature,priority:2"`
	IssueID    *string   `gorm:"type:char(36)"`
	TokensUsed int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index:idx_usage_user_feature,priority:3"`
}

// TableName implements the GORM tabler interface.
func (AIUsageLog) TableName() string { return "ai_usage_logs" }

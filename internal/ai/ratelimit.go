package ai

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/repo"
)

// RateLimit is the outcome of a side-effect-free limit check.
type RateLimit struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// UsageStats summarizes a user's AI activity for the usage endpoint.
type UsageStats struct {
	Today     int64             `json:"today"`
	ThisWeek  int64             `json:"thisWeek"`
	ThisMonth int64             `json:"thisMonth"`
	Features  []repo.AIUsageRow `json:"features"`
}

// Limiter is the DB-backed counted-window rate limiter over the
// ai_usage_logs table. Check counts rows in the trailing window; Record
// appends one. Check never reserves a slot, so two concurrent checks can
// both pass; the spare request is tolerated.
type Limiter struct {
	DB *gorm.DB

	// Now allows tests to pin the clock. Defaults to time.Now.
	Now func() time.Time
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Check counts the user's usage rows for feature inside the trailing window
// and reports whether another request is admitted. ResetAt is a fixed-horizon
// estimate (now + window), not an exact per-request expiry.
func (l *Limiter) Check(ctx context.Context, userID string, feature Feature) (RateLimit, error) {
	lim, ok := rateLimits[feature]
	if !ok {
		return RateLimit{}, ErrUnknownFeature
	}
	now := l.now()
	count, err := repo.CountAIUsageSince(ctx, l.DB, userID, string(feature), now.Add(-lim.Window))
	if err != nil {
		return RateLimit{}, err
	}
	remaining := lim.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimit{
		Allowed:   remaining > 0,
		Remaining: remaining,
		ResetAt:   now.Add(lim.Window),
	}, nil
}

// Record appends one usage row. This is the only write that future Check
// calls observe.
func (l *Limiter) Record(ctx context.Context, userID string, feature Feature, issueID *string, tokensUsed int) error {
	return repo.InsertAIUsage(ctx, l.DB, userID, string(feature), issueID, tokensUsed)
}

// Stats aggregates the user's usage for today, the current week (starting
// Sunday), and the current month, plus a per-feature breakdown for the month.
func (l *Limiter) Stats(ctx context.Context, userID string) (UsageStats, error) {
	now := l.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var out UsageStats
	var err error
	if out.Today, err = repo.CountAIUsageForUser(ctx, l.DB, userID, dayStart); err != nil {
		return UsageStats{}, err
	}
	if out.ThisWeek, err = repo.CountAIUsageForUser(ctx, l.DB, userID, weekStart); err != nil {
		return UsageStats{}, err
	}
	if out.ThisMonth, err = repo.CountAIUsageForUser(ctx, l.DB, userID, monthStart); err != nil {
		return UsageStats{}, err
	}
	if out.Features, err = repo.AIUsageStats(ctx, l.DB, userID, monthStart); err != nil {
		return UsageStats{}, err
	}
	return out, nil
}

package ai

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the gateway. Handlers translate them into HTTP
// status codes; the vendor error text is never exposed to clients.
var (
	// ErrRateLimited is matched via errors.Is against *RateLimitError.
	ErrRateLimited = errors.New("rate limited")

	// ErrGenerationFailed covers backend call failures and unparseable model
	// output alike. There is no partial-result fallback.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrUnknownFeature is returned for a feature name outside the fixed set.
	ErrUnknownFeature = errors.New("unknown feature")
)

// RateLimitError carries the machine-readable limit metadata a 429 response
// needs. It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	Feature   Feature
	Remaining int64
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited for %s until %s", e.Feature, e.ResetAt.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrRateLimited) work for wrapped values.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

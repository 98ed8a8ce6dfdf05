// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package) and the translation table from
// service-layer sentinel errors to HTTP statuses.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "project is archived"
//	}
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/ai"
	"github.com/tbourn/go-issue-board/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// mapServiceError translates service-layer sentinels into the uniform HTTP
// error envelope. Unknown errors become an opaque 500; their text is logged
// server-side by fail() but never leaked to the client.
func mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrStatusNotFound),
		errors.Is(err, services.ErrLabelNotFound),
		errors.Is(err, services.ErrIssueNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrSubtaskNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")

	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "insufficient role")

	case errors.Is(err, services.ErrProjectArchived):
		fail(c, http.StatusConflict, ErrCodeConflict, "project is archived")
	case errors.Is(err, services.ErrIssueLimit):
		fail(c, http.StatusConflict, ErrCodeConflict, "live issue limit reached")
	case errors.Is(err, services.ErrStatusNotEmpty):
		fail(c, http.StatusConflict, ErrCodeConflict, "status still has issues")
	case errors.Is(err, services.ErrMemberExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "user is already a member")

	case errors.Is(err, services.ErrEmptyName),
		errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidPriority):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())

	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// mapAIError translates gateway errors. Rate limits carry remaining/resetAt;
// generation and parse failures surface as an opaque 500.
func mapAIError(c *gin.Context, err error) {
	var rle *ai.RateLimitError
	switch {
	case errors.As(err, &rle):
		failRateLimited(c, rle.Remaining, rle.ResetAt.UTC().Format(time.RFC3339))
	case errors.Is(err, ai.ErrRateLimited):
		failRateLimited(c, 0, "")
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, ai.ErrGenerationFailed):
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "generation failed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

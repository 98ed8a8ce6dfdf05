package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-issue-board/internal/ai"
	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/http/middleware"
	"github.com/tbourn/go-issue-board/internal/services"
)

// fakeGen is a canned TextGenerator so handler tests never dial out.
type fakeGen struct {
	text   string
	chunks []string
	err    error
	calls  int
}

func (f *fakeGen) Generate(_ context.Context, _, _ string, _ ai.GenOptions) (string, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, 7, nil
}

func (f *fakeGen) Stream(_ context.Context, _, _ string, _ ai.GenOptions, fn func(chunk string) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for _, ch := range f.chunks {
		if err := fn(ch); err != nil {
			return err
		}
	}
	return nil
}

// env bundles a wired router, its DB, and the fake generator.
type env struct {
	r   *gin.Engine
	db  *gorm.DB
	gen *fakeGen
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:hdl_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	err = db.AutoMigrate(
		&domain.Team{}, &domain.TeamMember{},
		&domain.Project{}, &domain.Status{}, &domain.Label{},
		&domain.Issue{}, &domain.IssueLabel{},
		&domain.Comment{}, &domain.Subtask{},
		&domain.Notification{}, &domain.Idempotency{},
		&domain.AICacheEntry{}, &domain.AIUsageLog{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	gen := &fakeGen{text: "Concise summary.", chunks: []string{"part one ", "part two"}}
	gateway := ai.NewGateway(db, gen)
	notifSvc := services.NewNotificationService(db)
	h := New(db,
		services.NewTeamService(db, notifSvc),
		services.NewProjectService(db),
		services.NewIssueService(db, notifSvc, gateway.Cache),
		services.NewCommentService(db, notifSvc, gateway.Cache),
		notifSvc,
		gateway,
	)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api := r.Group("/api/v1")
	api.POST("/teams", h.CreateTeam)
	api.GET("/teams", h.ListTeams)
	api.GET("/teams/:id", h.GetTeam)
	api.PUT("/teams/:id", h.UpdateTeam)
	api.POST("/teams/:id/members", h.AddTeamMember)
	api.POST("/teams/:id/projects", h.CreateProject)
	api.POST("/projects/:id/archive", h.ArchiveProject)
	api.GET("/projects/:id/issues", h.GetBoard)
	api.POST("/projects/:id/issues", h.CreateIssue)
	api.GET("/issues/:id", h.GetIssue)
	api.POST("/issues/:id/comments", h.AddComment)
	api.GET("/notifications", h.ListNotifications)
	api.POST("/ai/summary", h.AISummary)
	api.GET("/ai/usage", h.AIUsage)

	return &env{r: r, db: db, gen: gen}
}

// do issues a JSON request as userID and returns the recorder.
func (e *env) do(t *testing.T, method, path, userID string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

// seedProject creates a team+project owned by ownerID through the API and
// returns the project ID.
func (e *env) seedProject(t *testing.T, ownerID string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/teams", ownerID, map[string]string{"name": "Acme"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed team: %d %s", w.Code, w.Body.String())
	}
	team := decode[domain.Team](t, w)

	w = e.do(t, http.MethodPost, "/api/v1/teams/"+team.ID+"/projects", ownerID,
		map[string]string{"name": "Website"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed project: %d %s", w.Code, w.Body.String())
	}
	return decode[domain.Project](t, w).ID
}

func (e *env) seedIssue(t *testing.T, ownerID, projectID, title string) domain.Issue {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/issues", ownerID,
		map[string]string{"title": title}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed issue: %d %s", w.Code, w.Body.String())
	}
	return decode[domain.Issue](t, w)
}

// ---------- identity & error envelope ----------

func TestHandlers_MissingIdentity(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/api/v1/teams", "", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeUnauthorized {
		t.Fatalf("expected code %q, got %q", ErrCodeUnauthorized, resp.Code)
	}
}

func TestHandlers_ServiceErrorMapping(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")

	// validation -> 400 with the service message
	w := e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/issues", "u-owner",
		map[string]string{"title": "   "}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank title expected 400, got %d %s", w.Code, w.Body.String())
	}

	// existence hiding -> 404 for strangers
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")
	w = e.do(t, http.MethodGet, "/api/v1/issues/"+issue.ID, "u-stranger", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger expected 404, got %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeNotFound {
		t.Fatalf("expected code not_found, got %q", resp.Code)
	}

	// archived project -> 409 conflict on mutation
	if w = e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/archive", "u-owner", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("archive: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/v1/issues/"+issue.ID+"/comments", "u-owner",
		map[string]string{"content": "hello"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("archived mutation expected 409, got %d %s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeConflict {
		t.Fatalf("expected code conflict, got %q", resp.Code)
	}
}

// ---------- idempotent issue creation ----------

func TestCreateIssue_IdempotencyReplay(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	hdr := map[string]string{"Idempotency-Key": "retry-1"}

	w := e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/issues", "u-owner",
		map[string]string{"title": "Fix login"}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create: %d %s", w.Code, w.Body.String())
	}
	first := decode[domain.Issue](t, w)
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first create must not be a replay")
	}

	// Same key replays the recorded issue instead of creating a second one.
	w = e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/issues", "u-owner",
		map[string]string{"title": "Fix login"}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("replay: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected Idempotency-Replayed header on second call")
	}
	second := decode[domain.Issue](t, w)
	if second.ID != first.ID {
		t.Fatalf("replay returned a different issue: %s vs %s", second.ID, first.ID)
	}

	var n int64
	if err := e.db.Model(&domain.Issue{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one issue, got %d", n)
	}

	// A different key creates a fresh issue.
	w = e.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/issues", "u-owner",
		map[string]string{"title": "Fix login"}, map[string]string{"Idempotency-Key": "retry-2"})
	if w.Code != http.StatusCreated || w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("new key should create: %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
}

// ---------- board ETag ----------

func TestGetBoard_ETagNotModified(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	e.seedIssue(t, "u-owner", projectID, "Fix login")

	w := e.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/issues", "u-owner", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board: %d %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	w = e.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/issues", "u-owner", nil,
		map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	// A new issue changes the board state; the old tag no longer matches.
	e.seedIssue(t, "u-owner", projectID, "Second issue")
	w = e.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/issues", "u-owner", nil,
		map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("stale tag expected 200, got %d", w.Code)
	}
	if w.Header().Get("ETag") == etag {
		t.Fatalf("ETag should change after a mutation")
	}
}

// ---------- teams ----------

func TestTeamEndpoints_Flow(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/teams", "u-owner", map[string]string{"name": "Platform"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: %d %s", w.Code, w.Body.String())
	}
	team := decode[domain.Team](t, w)

	w = e.do(t, http.MethodPost, "/api/v1/teams/"+team.ID+"/members", "u-owner",
		map[string]string{"user_id": "u-dev", "role": "MEMBER"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add member: %d %s", w.Code, w.Body.String())
	}
	// duplicate add -> 409
	w = e.do(t, http.MethodPost, "/api/v1/teams/"+team.ID+"/members", "u-owner",
		map[string]string{"user_id": "u-dev", "role": "MEMBER"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate member expected 409, got %d", w.Code)
	}

	// plain member may not rename the team
	w = e.do(t, http.MethodPut, "/api/v1/teams/"+team.ID, "u-dev", map[string]string{"name": "Hijack"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("member rename expected 403, got %d %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/v1/teams/"+team.ID, "u-dev", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get team: %d %s", w.Code, w.Body.String())
	}
	detail := decode[TeamDetailResponse](t, w)
	if len(detail.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(detail.Members))
	}
}

// ---------- AI gateway ----------

func TestAISummary_GenerateThenCacheHit(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")
	body := map[string]string{"issueId": issue.ID}

	w := e.do(t, http.MethodPost, "/api/v1/ai/summary", "u-owner", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	resp := decode[AISummaryResponse](t, w)
	if resp.Summary != "Concise summary." || resp.Cached {
		t.Fatalf("unexpected first response: %+v", resp)
	}

	w = e.do(t, http.MethodPost, "/api/v1/ai/summary", "u-owner", body, nil)
	resp = decode[AISummaryResponse](t, w)
	if !resp.Cached {
		t.Fatalf("second call should hit the cache: %+v", resp)
	}
	if e.gen.calls != 1 {
		t.Fatalf("generator should run once, ran %d times", e.gen.calls)
	}
}

func TestAISummary_RateLimited(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")

	// Exhaust the summary window (10/hour).
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := insertUsage(ctx, e.db, "u-owner", "summary"); err != nil {
			t.Fatalf("seed usage: %v", err)
		}
	}

	w := e.do(t, http.MethodPost, "/api/v1/ai/summary", "u-owner",
		map[string]string{"issueId": issue.ID}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeRateLimited {
		t.Fatalf("expected code too_many_requests, got %q", resp.Code)
	}
	if resp.Remaining == nil || *resp.Remaining != 0 || resp.ResetAt == "" {
		t.Fatalf("expected remaining=0 and resetAt, got %+v", resp)
	}
}

func TestAISummary_Stream(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")

	w := e.do(t, http.MethodPost, "/api/v1/ai/summary?stream=true", "u-owner",
		map[string]string{"issueId": issue.ID}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stream: %d %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "part one part two" {
		t.Fatalf("unexpected stream body %q", got)
	}
}

func TestAISummary_GenerationFailure(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")
	e.gen.err = ai.ErrGenerationFailed

	w := e.do(t, http.MethodPost, "/api/v1/ai/summary", "u-owner",
		map[string]string{"issueId": issue.ID}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeGenerationFailed {
		t.Fatalf("expected code generation_failed, got %q", resp.Code)
	}
}

func TestAIUsage_Report(t *testing.T) {
	e := newEnv(t)
	projectID := e.seedProject(t, "u-owner")
	issue := e.seedIssue(t, "u-owner", projectID, "Fix login")

	w := e.do(t, http.MethodPost, "/api/v1/ai/summary", "u-owner",
		map[string]string{"issueId": issue.ID}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/v1/ai/usage", "u-owner", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("usage: %d %s", w.Code, w.Body.String())
	}
	stats := decode[ai.UsageStats](t, w)
	if stats.Today != 1 || stats.ThisMonth != 1 {
		t.Fatalf("unexpected usage stats: %+v", stats)
	}
}

// insertUsage appends one raw usage row, bypassing the gateway.
func insertUsage(ctx context.Context, db *gorm.DB, userID, feature string) error {
	row := domain.AIUsageLog{
		ID:      uuid.NewString(),
		UserID:  userID,
		Feature: feature,
	}
	return db.WithContext(ctx).Create(&row).Error
}

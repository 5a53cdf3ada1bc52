package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/gateway"
	"github.com/shaiso/Herald/internal/repo"
	"github.com/shaiso/Herald/internal/scheduler"
	"github.com/shaiso/Herald/internal/telemetry"
)

type testServer struct {
	store       *repo.MemoryRepo
	sched       *scheduler.Scheduler
	server      *httptest.Server
	failGateway atomic.Bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{store: repo.NewMemoryRepo()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts.sched = scheduler.New(scheduler.Config{
		Store: ts.store,
		Gateway: gateway.Func(func(_ context.Context, post *domain.Post) error {
			if ts.failGateway.Load() {
				return fmt.Errorf("%w: platform unavailable", gateway.ErrPublishFailed)
			}
			return nil
		}),
		Logger: logger,
	})

	h := NewHandler(Config{
		Store:     ts.store,
		Scheduler: ts.sched,
		Metrics:   telemetry.NewHTTPMetrics(prometheus.NewRegistry()),
		Logger:    logger,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	ts.server = httptest.NewServer(mux)
	t.Cleanup(ts.server.Close)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func decodeError(t *testing.T, resp *http.Response) ErrorDetail {
	t.Helper()
	var envelope ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error
}

func (ts *testServer) seed(t *testing.T, status domain.PostStatus) *domain.Post {
	t.Helper()
	p := domain.NewPost(uuid.New(), "seed", "content")
	if status != domain.PostStatusDraft {
		require.NoError(t, p.MarkScheduled(time.Now().Add(time.Hour)))
	}
	if status == domain.PostStatusPublished {
		require.NoError(t, p.MarkPublished(time.Now()))
	}
	require.NoError(t, ts.store.Create(context.Background(), p))
	return p
}

func TestCreateAndGetPost(t *testing.T) {
	ts := newTestServer(t)
	author := uuid.New()

	resp := ts.do(t, http.MethodPost, "/api/v1/posts", CreatePostRequest{
		AuthorID: author,
		Title:    "Hello",
		Content:  "World",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeData[PostResponse](t, resp)
	assert.Equal(t, domain.PostStatusDraft, created.Status)
	assert.Equal(t, author, created.AuthorID)

	resp = ts.do(t, http.MethodGet, "/api/v1/posts/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeData[PostResponse](t, resp)
	assert.Equal(t, "Hello", got.Title)
}

func TestCreatePost_WithScheduledAt(t *testing.T) {
	ts := newTestServer(t)
	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	resp := ts.do(t, http.MethodPost, "/api/v1/posts", CreatePostRequest{
		AuthorID:    uuid.New(),
		Title:       "Later",
		ScheduledAt: &at,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeData[PostResponse](t, resp)
	assert.Equal(t, domain.PostStatusScheduled, created.Status)
	require.NotNil(t, created.ScheduledAt)
	assert.True(t, at.Equal(*created.ScheduledAt))

	// пост сразу сохранён запланированным, без промежуточного черновика
	stats, err := ts.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.PostStats{Total: 1, Scheduled: 1}, stats)
}

func TestCreatePost_Validation(t *testing.T) {
	ts := newTestServer(t)
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name string
		body any
		code ErrorCode
	}{
		{"missing author", CreatePostRequest{Title: "t"}, ErrCodeBadRequest},
		{"missing title", CreatePostRequest{AuthorID: uuid.New()}, ErrCodeBadRequest},
		{"past schedule", CreatePostRequest{AuthorID: uuid.New(), Title: "t", ScheduledAt: &past}, ErrCodeInvalidTime},
		{"not json", "{{", ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/v1/posts", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}

	stats, err := ts.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestListPosts_Filters(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, domain.PostStatusDraft)
	ts.seed(t, domain.PostStatusScheduled)
	ts.seed(t, domain.PostStatusScheduled)

	resp := ts.do(t, http.MethodGet, "/api/v1/posts?status=scheduled", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data  []PostResponse `json:"data"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 2, list.Total)

	resp = ts.do(t, http.MethodGet, "/api/v1/posts?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/posts?author_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPosts_CreatedRange(t *testing.T) {
	ts := newTestServer(t)
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		p := domain.NewPost(uuid.New(), "t", "")
		p.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		p.UpdatedAt = p.CreatedAt
		require.NoError(t, ts.store.Create(context.Background(), p))
		ids[i] = p.ID
	}

	tests := []struct {
		name  string
		query string
		want  []uuid.UUID
	}{
		{"start only", "start_date=2030-01-02T00:00:00Z", []uuid.UUID{ids[2], ids[1]}},
		{"end only", "end_date=2030-01-02T12:00:00Z", []uuid.UUID{ids[1], ids[0]}},
		{"offset zone", "start_date=2030-01-02T15:00:00%2B03:00&end_date=2030-01-02T12:00:00Z", []uuid.UUID{ids[1]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/v1/posts?"+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var got []uuid.UUID
			for _, p := range decodeData[[]PostResponse](t, resp) {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	bad := []string{
		"start_date=yesterday",
		"end_date=2030-01-02",
		"start_date=2030-01-03T00:00:00Z&end_date=2030-01-02T00:00:00Z",
	}
	for _, q := range bad {
		t.Run(q, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/v1/posts?"+q, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, ErrCodeBadRequest, decodeError(t, resp).Code)
		})
	}
}

func TestHandleError_StoreConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handled := HandleError(rec, logger, fmt.Errorf("update post: %w", repo.ErrConflict), "post not found")
	require.True(t, handled)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdatePost(t *testing.T) {
	ts := newTestServer(t)
	draft := ts.seed(t, domain.PostStatusDraft)
	published := ts.seed(t, domain.PostStatusPublished)
	title := "Renamed"

	resp := ts.do(t, http.MethodPut, "/api/v1/posts/"+draft.ID.String(), UpdatePostRequest{Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", decodeData[PostResponse](t, resp).Title)

	resp = ts.do(t, http.MethodPut, "/api/v1/posts/"+published.ID.String(), UpdatePostRequest{Title: &title})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, ErrCodeInvalidState, decodeError(t, resp).Code)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seed(t, domain.PostStatusDraft)

	resp := ts.do(t, http.MethodDelete, "/api/v1/posts/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/v1/posts/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSchedulePost_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	draft := ts.seed(t, domain.PostStatusDraft)
	published := ts.seed(t, domain.PostStatusPublished)
	future := SchedulePostRequest{ScheduledAt: time.Now().Add(time.Hour)}

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   ErrorCode
	}{
		{"bad id", "/api/v1/posts/xyz/schedule", future, http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", "/api/v1/posts/" + uuid.NewString() + "/schedule", future, http.StatusNotFound, ErrCodeNotFound},
		{"published", "/api/v1/posts/" + published.ID.String() + "/schedule", future, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{"past", "/api/v1/posts/" + draft.ID.String() + "/schedule", SchedulePostRequest{ScheduledAt: time.Now().Add(-time.Second)}, http.StatusBadRequest, ErrCodeInvalidTime},
		{"missing time", "/api/v1/posts/" + draft.ID.String() + "/schedule", map[string]any{}, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}

	resp := ts.do(t, http.MethodPost, "/api/v1/posts/"+draft.ID.String()+"/schedule", future)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.PostStatusScheduled, decodeData[PostResponse](t, resp).Status)
}

func TestCancelPost(t *testing.T) {
	ts := newTestServer(t)
	scheduled := ts.seed(t, domain.PostStatusScheduled)
	draft := ts.seed(t, domain.PostStatusDraft)

	resp := ts.do(t, http.MethodPost, "/api/v1/posts/"+scheduled.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeData[PostResponse](t, resp)
	assert.Equal(t, domain.PostStatusDraft, got.Status)
	assert.Nil(t, got.ScheduledAt)

	resp = ts.do(t, http.MethodPost, "/api/v1/posts/"+draft.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPublishPost(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seed(t, domain.PostStatusScheduled)

	ts.failGateway.Store(true)
	resp := ts.do(t, http.MethodPost, "/api/v1/posts/"+p.ID.String()+"/publish", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, ErrCodeGatewayFailure, decodeError(t, resp).Code)

	ts.failGateway.Store(false)
	resp = ts.do(t, http.MethodPost, "/api/v1/posts/"+p.ID.String()+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeData[PostResponse](t, resp)
	assert.Equal(t, domain.PostStatusPublished, got.Status)
	assert.NotNil(t, got.PublishedAt)

	resp = ts.do(t, http.MethodPost, "/api/v1/posts/"+p.ID.String()+"/publish", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSchedulerStatusAndStats(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, domain.PostStatusDraft)
	ts.seed(t, domain.PostStatusScheduled)
	ts.seed(t, domain.PostStatusPublished)

	resp := ts.do(t, http.MethodGet, "/api/v1/scheduler/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeData[SchedulerStatusResponse](t, resp)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.ScheduledPosts)

	resp = ts.do(t, http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatsResponse{
		TotalPosts:     3,
		DraftPosts:     1,
		ScheduledPosts: 1,
		PublishedPosts: 1,
	}, decodeData[StatsResponse](t, resp))
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

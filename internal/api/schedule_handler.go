package api

import (
	"encoding/json"
	"net/http"
)

// SchedulePost планирует публикацию черновика.
// POST /api/v1/posts/{id}/schedule
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var req SchedulePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ScheduledAt.IsZero() {
		BadRequest(w, "scheduled_at is required")
		return
	}

	post, err := h.scheduler.SchedulePost(r.Context(), id, req.ScheduledAt)
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	Success(w, PostFromDomain(post))
}

// CancelPost отменяет запланированную публикацию.
// POST /api/v1/posts/{id}/cancel
func (h *Handler) CancelPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.scheduler.CancelScheduledPost(r.Context(), id)
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	Success(w, PostFromDomain(post))
}

// PublishPost публикует запланированный пост немедленно.
// POST /api/v1/posts/{id}/publish
func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.scheduler.PublishNow(r.Context(), id)
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	Success(w, PostFromDomain(post))
}

// SchedulerStatus возвращает состояние планировщика.
// GET /api/v1/scheduler/status
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.scheduler.ScheduledPostsCount(r.Context())
	if HandleError(w, h.logger, err, "") {
		return
	}

	Success(w, SchedulerStatusResponse{
		Running:        h.scheduler.IsRunning(),
		ScheduledPosts: count,
	})
}

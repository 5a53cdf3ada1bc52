package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(h.metrics),
		Logging(h.logger),
	)

	// Posts
	mux.Handle("GET /api/v1/posts", chain(http.HandlerFunc(h.ListPosts)))
	mux.Handle("POST /api/v1/posts", chain(http.HandlerFunc(h.CreatePost)))
	mux.Handle("GET /api/v1/posts/{id}", chain(http.HandlerFunc(h.GetPost)))
	mux.Handle("PUT /api/v1/posts/{id}", chain(http.HandlerFunc(h.UpdatePost)))
	mux.Handle("DELETE /api/v1/posts/{id}", chain(http.HandlerFunc(h.DeletePost)))

	// Scheduling
	mux.Handle("POST /api/v1/posts/{id}/schedule", chain(http.HandlerFunc(h.SchedulePost)))
	mux.Handle("POST /api/v1/posts/{id}/cancel", chain(http.HandlerFunc(h.CancelPost)))
	mux.Handle("POST /api/v1/posts/{id}/publish", chain(http.HandlerFunc(h.PublishPost)))
	mux.Handle("GET /api/v1/scheduler/status", chain(http.HandlerFunc(h.SchedulerStatus)))

	// Admin
	mux.Handle("GET /api/v1/admin/stats", chain(http.HandlerFunc(h.Stats)))
}

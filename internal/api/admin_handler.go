package api

import (
	"net/http"
)

// Stats возвращает количество постов по статусам.
// GET /api/v1/admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if HandleError(w, h.logger, err, "") {
		return
	}

	Success(w, StatsResponse{
		TotalPosts:     stats.Total,
		DraftPosts:     stats.Draft,
		ScheduledPosts: stats.Scheduled,
		PublishedPosts: stats.Published,
	})
}

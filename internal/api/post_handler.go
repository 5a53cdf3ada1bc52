package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/repo"
)

// ListPosts возвращает список постов с фильтрацией.
// GET /api/v1/posts?author_id=...&status=...&start_date=...&end_date=...&limit=...&offset=...
//
// start_date и end_date (RFC 3339) ограничивают created_at включительно.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.PostFilter{
		Limit:  parseInt(q.Get("limit"), 50),
		Offset: parseInt(q.Get("offset"), 0),
	}

	if s := q.Get("author_id"); s != "" {
		authorID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid author_id")
			return
		}
		filter.AuthorID = &authorID
	}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParsePostStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	var ok bool
	if filter.CreatedFrom, ok = parseTimeParam(w, q.Get("start_date"), "start_date"); !ok {
		return
	}
	if filter.CreatedTo, ok = parseTimeParam(w, q.Get("end_date"), "end_date"); !ok {
		return
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		BadRequest(w, "start_date must not be after end_date")
		return
	}

	posts, err := h.store.List(r.Context(), filter)
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]PostResponse, len(posts))
	for i := range posts {
		result[i] = PostFromDomain(&posts[i])
	}

	List(w, result, len(result))
}

// CreatePost создаёт пост.
// POST /api/v1/posts
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.AuthorID == uuid.Nil {
		BadRequest(w, "author_id is required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		BadRequest(w, "title is required")
		return
	}
	if req.ScheduledAt != nil && !req.ScheduledAt.After(time.Now()) {
		Error(w, http.StatusBadRequest, ErrCodeInvalidTime, "scheduled_at must be in the future")
		return
	}

	// пост со временем публикации сохраняется сразу SCHEDULED, одной записью
	post := domain.NewPost(req.AuthorID, strings.TrimSpace(req.Title), req.Content)
	if req.ScheduledAt != nil {
		if err := post.MarkScheduled(*req.ScheduledAt); HandleError(w, h.logger, err, "") {
			return
		}
	}

	if err := h.store.Create(r.Context(), post); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, PostFromDomain(post))
}

// GetPost возвращает пост по ID.
// GET /api/v1/posts/{id}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.store.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	Success(w, PostFromDomain(post))
}

// UpdatePost обновляет заголовок и текст поста.
// Опубликованный пост изменить нельзя.
// PUT /api/v1/posts/{id}
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	post, err := h.store.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	if post.Status.IsTerminal() {
		InvalidState(w, "published posts cannot be modified")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			BadRequest(w, "title must not be empty")
			return
		}
		post.Title = title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	post.UpdatedAt = time.Now().UTC()

	// статус мог смениться после чтения: Update отвечает ErrConflict
	err = h.store.Update(r.Context(), post)
	if errors.Is(err, repo.ErrConflict) {
		InvalidState(w, "published posts cannot be modified")
		return
	}
	if HandleError(w, h.logger, err, "post not found") {
		return
	}

	Success(w, PostFromDomain(post))
}

// DeletePost удаляет пост.
// DELETE /api/v1/posts/{id}
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); HandleError(w, h.logger, err, "post not found") {
		return
	}

	NoContent(w)
}

// postID разбирает {id} из пути; при ошибке отвечает 400.
func postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid post id")
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeParam разбирает необязательный RFC 3339 параметр запроса.
// При ошибке отвечает 400 и возвращает false.
func parseTimeParam(w http.ResponseWriter, s, name string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		BadRequest(w, "invalid "+name+", expected RFC 3339")
		return nil, false
	}
	t = t.UTC()
	return &t, true
}

// parseInt парсит строку в int с дефолтным значением.
func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

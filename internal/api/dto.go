package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Herald/internal/domain"
)

// Post DTOs

// CreatePostRequest — запрос на создание поста.
// Если ScheduledAt задан, пост сразу планируется.
type CreatePostRequest struct {
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// UpdatePostRequest — запрос на обновление поста.
type UpdatePostRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// SchedulePostRequest — запрос на планирование публикации.
type SchedulePostRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// PostResponse — ответ с постом.
type PostResponse struct {
	ID          uuid.UUID         `json:"id"`
	AuthorID    uuid.UUID         `json:"author_id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Status      domain.PostStatus `json:"status"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PostFromDomain конвертирует domain.Post в PostResponse.
func PostFromDomain(p *domain.Post) PostResponse {
	return PostResponse{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Content:     p.Content,
		Status:      p.Status,
		ScheduledAt: p.ScheduledAt,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Scheduler DTOs

// SchedulerStatusResponse — состояние планировщика.
type SchedulerStatusResponse struct {
	Running        bool `json:"running"`
	ScheduledPosts int  `json:"scheduled_posts"`
}

// StatsResponse — количество постов по статусам.
type StatsResponse struct {
	TotalPosts     int `json:"total_posts"`
	DraftPosts     int `json:"draft_posts"`
	ScheduledPosts int `json:"scheduled_posts"`
	PublishedPosts int `json:"published_posts"`
}

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrIllegalTransition — переход между статусами запрещён.
var ErrIllegalTransition = errors.New("illegal status transition")

// Post — публикация в социальной сети.
//
// Post создаётся черновиком (DRAFT), может быть запланирован (SCHEDULED)
// и в итоге опубликован (PUBLISHED). Scheduler читает и меняет только
// поля статуса: Status, ScheduledAt, PublishedAt.
type Post struct {
	// ID — уникальный идентификатор поста.
	ID uuid.UUID `json:"id"`

	// AuthorID — владелец поста.
	AuthorID uuid.UUID `json:"author_id"`

	// Title — заголовок.
	Title string `json:"title"`

	// Content — текст поста.
	Content string `json:"content"`

	// Status — текущий статус.
	Status PostStatus `json:"status"`

	// ScheduledAt — время запланированной публикации.
	// Задано тогда и только тогда, когда Status == SCHEDULED.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// PublishedAt — время публикации.
	// Задаётся один раз, при переходе в PUBLISHED.
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// CreatedAt — время создания поста.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPost создаёт черновик.
func NewPost(authorID uuid.UUID, title, content string) *Post {
	now := time.Now().UTC()
	return &Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Status:    PostStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDue проверяет, пора ли публиковать пост.
func (p *Post) IsDue(cutoff time.Time) bool {
	if p.Status != PostStatusScheduled || p.ScheduledAt == nil {
		return false
	}
	return !p.ScheduledAt.After(cutoff)
}

// MarkScheduled переводит DRAFT → SCHEDULED.
func (p *Post) MarkScheduled(at time.Time) error {
	if err := p.checkTransition(PostStatusScheduled); err != nil {
		return err
	}
	at = at.UTC()
	p.Status = PostStatusScheduled
	p.ScheduledAt = &at
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDraft переводит SCHEDULED → DRAFT (отмена публикации).
func (p *Post) MarkDraft() error {
	if err := p.checkTransition(PostStatusDraft); err != nil {
		return err
	}
	p.Status = PostStatusDraft
	p.ScheduledAt = nil
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPublished переводит SCHEDULED → PUBLISHED.
func (p *Post) MarkPublished(at time.Time) error {
	if err := p.checkTransition(PostStatusPublished); err != nil {
		return err
	}
	at = at.UTC()
	p.Status = PostStatusPublished
	p.ScheduledAt = nil
	p.PublishedAt = &at
	p.UpdatedAt = at
	return nil
}

func (p *Post) checkTransition(to PostStatus) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, to)
	}
	return nil
}

// TruncateToMinute отбрасывает секунды и доли секунды.
//
// Граница выборки due-постов: scheduled_at <= TruncateToMinute(now).
func TruncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

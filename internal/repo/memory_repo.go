package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Herald/internal/domain"
)

// MemoryRepo — хранилище постов в памяти.
// Безопасно для конкурентного доступа. Для разработки и тестов.
type MemoryRepo struct {
	mu      sync.RWMutex
	posts   map[uuid.UUID]*domain.Post
	claimed map[uuid.UUID]struct{}
}

var _ Store = (*MemoryRepo)(nil)

// NewMemoryRepo создаёт пустое хранилище.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		posts:   make(map[uuid.UUID]*domain.Post),
		claimed: make(map[uuid.UUID]struct{}),
	}
}

// Migrate ничего не делает.
func (m *MemoryRepo) Migrate(_ context.Context) error { return nil }

// Ping всегда успешен.
func (m *MemoryRepo) Ping(_ context.Context) error { return nil }

// Close ничего не делает.
func (m *MemoryRepo) Close() error { return nil }

// Create создаёт новый пост.
func (m *MemoryRepo) Create(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[post.ID]; ok {
		return fmt.Errorf("insert post: duplicate id %s", post.ID)
	}
	m.posts[post.ID] = clonePost(post)
	return nil
}

// GetByID возвращает копию поста.
func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePost(p), nil
}

// List возвращает посты с фильтрацией, новые первыми.
func (m *MemoryRepo) List(_ context.Context, filter PostFilter) ([]domain.Post, error) {
	m.mu.RLock()
	var posts []domain.Post
	for _, p := range m.posts {
		if id := nullUUID(filter.AuthorID); id != nil && p.AuthorID != *id {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.CreatedFrom != nil && p.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && p.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		posts = append(posts, *clonePost(p))
	}
	m.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	if filter.Offset >= len(posts) {
		return nil, nil
	}
	posts = posts[filter.Offset:]
	if limit := normalizeLimit(filter.Limit); len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// Update обновляет заголовок и текст поста.
// Опубликованный или публикуемый пост не меняется: ErrConflict.
func (m *MemoryRepo) Update(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[post.ID]
	if !ok {
		return ErrNotFound
	}
	if _, busy := m.claimed[post.ID]; busy || p.Status.IsTerminal() {
		return ErrConflict
	}
	p.Title = post.Title
	p.Content = post.Content
	p.UpdatedAt = post.UpdatedAt
	return nil
}

// Delete удаляет пост.
func (m *MemoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

// Transition сохраняет статусные поля, если статус равен from
// и пост не захвачен публикацией.
func (m *MemoryRepo) Transition(_ context.Context, post *domain.Post, from domain.PostStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[post.ID]
	if !ok || p.Status != from {
		return ErrConflict
	}
	if _, busy := m.claimed[post.ID]; busy {
		return ErrConflict
	}

	p.Status = post.Status
	p.ScheduledAt = cloneTime(post.ScheduledAt)
	p.PublishedAt = cloneTime(post.PublishedAt)
	p.UpdatedAt = post.UpdatedAt
	return nil
}

// FindDue возвращает посты, готовые к публикации.
// limit <= 0 — без ограничения.
func (m *MemoryRepo) FindDue(_ context.Context, cutoff time.Time, limit int) ([]domain.Post, error) {
	m.mu.RLock()
	var posts []domain.Post
	for _, p := range m.posts {
		if p.IsDue(cutoff) {
			posts = append(posts, *clonePost(p))
		}
	}
	m.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt)
	})

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// PublishDue захватывает пост, вызывает fn вне блокировки
// и сохраняет результат только при успехе.
func (m *MemoryRepo) PublishDue(ctx context.Context, id uuid.UUID, publishedAt time.Time, fn PublishFunc) (*domain.Post, error) {
	m.mu.Lock()
	p, ok := m.posts[id]
	if !ok || p.Status != domain.PostStatusScheduled {
		m.mu.Unlock()
		return nil, ErrNotClaimed
	}
	if _, busy := m.claimed[id]; busy {
		m.mu.Unlock()
		return nil, ErrNotClaimed
	}
	m.claimed[id] = struct{}{}
	post := clonePost(p)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.claimed, id)
		m.mu.Unlock()
	}()

	if err := post.MarkPublished(publishedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotClaimed, err)
	}

	if err := fn(ctx, post); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.posts[id]
	if !ok {
		return post, fmt.Errorf("%w: post deleted", ErrCommitFailed)
	}
	stored.Status = post.Status
	stored.ScheduledAt = nil
	stored.PublishedAt = cloneTime(post.PublishedAt)
	stored.UpdatedAt = post.UpdatedAt
	return post, nil
}

// CountByStatus возвращает количество постов в статусе.
func (m *MemoryRepo) CountByStatus(_ context.Context, status domain.PostStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	for _, p := range m.posts {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

// Stats возвращает количество постов по статусам.
func (m *MemoryRepo) Stats(_ context.Context) (PostStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats PostStats
	for _, p := range m.posts {
		stats.add(p.Status, 1)
	}
	return stats, nil
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.ScheduledAt = cloneTime(p.ScheduledAt)
	c.PublishedAt = cloneTime(p.PublishedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

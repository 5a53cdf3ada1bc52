package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/repo"
	"github.com/shaiso/Herald/internal/telemetry"
)

// SchedulePost планирует публикацию черновика на время at.
//
// Ошибки:
//   - ErrNotFound — поста нет
//   - ErrInvalidState — пост не DRAFT (или изменился параллельно)
//   - ErrInvalidTime — at не в будущем
//
// Изменение сохраняется сразу, не дожидаясь следующего цикла.
func (s *Scheduler) SchedulePost(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Status != domain.PostStatusDraft {
		return nil, fmt.Errorf("%w: only draft posts can be scheduled, post %s is %s",
			ErrInvalidState, id, post.Status)
	}
	if !at.After(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTime, at.Format(time.RFC3339))
	}

	if err := post.MarkScheduled(at); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err := s.transition(ctx, post, domain.PostStatusDraft); err != nil {
		return nil, err
	}

	telemetry.WithPostID(s.logger, id.String()).Info("post scheduled",
		"scheduled_at", post.ScheduledAt,
	)
	return post, nil
}

// CancelScheduledPost возвращает запланированный пост в черновики.
//
// Ошибки:
//   - ErrNotFound — поста нет
//   - ErrInvalidState — пост не SCHEDULED (или уже публикуется)
func (s *Scheduler) CancelScheduledPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Status != domain.PostStatusScheduled {
		return nil, fmt.Errorf("%w: post %s is not scheduled", ErrInvalidState, id)
	}

	if err := post.MarkDraft(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err := s.transition(ctx, post, domain.PostStatusScheduled); err != nil {
		return nil, err
	}

	telemetry.WithPostID(s.logger, id.String()).Info("scheduled post cancelled")
	return post, nil
}

// ScheduledPostsCount возвращает количество постов в статусе SCHEDULED.
func (s *Scheduler) ScheduledPostsCount(ctx context.Context) (int, error) {
	n, err := s.store.CountByStatus(ctx, domain.PostStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("%w: count scheduled posts: %w", ErrStore, err)
	}
	return n, nil
}

// PublishNow публикует запланированный пост, не дожидаясь его времени.
//
// Использует ту же транзакцию, что и фоновый цикл: если цикл уже
// публикует этот пост, PublishNow вернёт ErrInvalidState и не вызовет
// Gateway повторно.
//
// Ошибки:
//   - ErrNotFound — поста нет
//   - ErrInvalidState — пост не SCHEDULED
//   - ErrGatewayFailure — платформа не приняла пост; он остаётся SCHEDULED
func (s *Scheduler) PublishNow(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Status != domain.PostStatusScheduled {
		return nil, fmt.Errorf("%w: only scheduled posts can be published, post %s is %s",
			ErrInvalidState, id, post.Status)
	}

	published, err := s.publishPost(ctx, id)
	if errors.Is(err, repo.ErrNotClaimed) {
		return nil, fmt.Errorf("%w: post %s is no longer scheduled", ErrInvalidState, id)
	}
	if err != nil {
		return nil, err
	}
	return published, nil
}

// load читает пост и переводит ошибки хранилища в ошибки Scheduler.
func (s *Scheduler) load(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load post %s: %w", ErrStore, id, err)
	}
	return post, nil
}

// transition сохраняет статус; параллельное изменение — ErrInvalidState.
func (s *Scheduler) transition(ctx context.Context, post *domain.Post, from domain.PostStatus) error {
	err := s.store.Transition(ctx, post, from)
	if errors.Is(err, repo.ErrConflict) {
		return fmt.Errorf("%w: post %s changed concurrently", ErrInvalidState, post.ID)
	}
	if err != nil {
		return fmt.Errorf("%w: save post %s: %w", ErrStore, post.ID, err)
	}
	return nil
}

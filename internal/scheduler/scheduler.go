package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/gateway"
	"github.com/shaiso/Herald/internal/repo"
)

// Default configuration values.
const (
	DefaultPollInterval   = 10 * time.Second
	DefaultErrorBackoff   = 30 * time.Second
	DefaultPublishTimeout = 30 * time.Second
)

// PostStore — хранилище постов, с которым работает Scheduler.
// Реализуется repo.PostRepo, repo.SQLiteRepo и repo.MemoryRepo.
type PostStore interface {
	FindDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	Transition(ctx context.Context, post *domain.Post, from domain.PostStatus) error
	PublishDue(ctx context.Context, id uuid.UUID, publishedAt time.Time, fn repo.PublishFunc) (*domain.Post, error)
	CountByStatus(ctx context.Context, status domain.PostStatus) (int, error)
}

// Scheduler — планировщик публикации постов.
//
// Фоновый цикл раз в PollInterval выбирает посты SCHEDULED со
// scheduled_at <= now (с точностью до минуты) и публикует каждый
// через Gateway. Ошибка одного поста не мешает остальным.
//
// SchedulePost, CancelScheduledPost, ScheduledPostsCount и PublishNow
// можно вызывать в любой момент, независимо от состояния цикла.
type Scheduler struct {
	store   PostStore
	gateway gateway.Gateway
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	pollInterval   time.Duration
	errorBackoff   time.Duration
	publishTimeout time.Duration
	batchSize      int

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Config — конфигурация Scheduler.
type Config struct {
	Store   PostStore       // обязательно
	Gateway gateway.Gateway // обязательно
	Logger  *slog.Logger
	Metrics *Metrics // опционально; если nil — метрики не регистрируются

	PollInterval   time.Duration // пауза после успешного цикла (default: 10s)
	ErrorBackoff   time.Duration // пауза после ошибки выборки (default: 30s)
	PublishTimeout time.Duration // таймаут одной публикации (default: 30s)
	BatchSize      int           // постов за цикл; 0 — все due-посты

	// Clock — источник текущего времени (для тестов).
	Clock func() time.Time
}

// New создаёт новый Scheduler. Цикл не запускается до Start.
func New(cfg Config) *Scheduler {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	errorBackoff := cfg.ErrorBackoff
	if errorBackoff <= 0 {
		errorBackoff = DefaultErrorBackoff
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		store:          cfg.Store,
		gateway:        cfg.Gateway,
		logger:         logger,
		metrics:        metrics,
		now:            now,
		pollInterval:   pollInterval,
		errorBackoff:   errorBackoff,
		publishTimeout: publishTimeout,
		batchSize:      max(cfg.BatchSize, 0),
	}
}

// Start запускает фоновый цикл и сразу возвращается.
// Повторный вызов при работающем цикле ничего не делает.
//
// Цикл наследует значения ctx, но не его отмену: остановить цикл
// можно только через Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.running = true
	s.cancel = cancel
	s.done = done

	go s.loop(loopCtx, done)

	s.logger.Info("post scheduler started",
		"poll_interval", s.pollInterval,
		"error_backoff", s.errorBackoff,
	)
}

// Stop останавливает цикл и ждёт его завершения.
// Публикация, начатая до Stop, доводится до конца.
// Без предшествующего Start ничего не делает.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.cancel()
	<-s.done

	s.cancel = nil
	s.done = nil

	s.logger.Info("post scheduler stopped")
}

// IsRunning сообщает, запущен ли фоновый цикл.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// loop — Scanning → Sleeping → Scanning … до отмены ctx.
func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		delay := s.pollInterval
		if err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("scheduler cycle failed",
				"retry_in", s.errorBackoff,
				"error", err,
			)
			delay = s.errorBackoff
		}

		timer.Reset(delay)
	}
}

// Tick выполняет один цикл сканирования.
//
// 1. Вычисляет cutoff — текущее время, округлённое вниз до минуты
// 2. Находит посты SCHEDULED со scheduled_at <= cutoff
// 3. Публикует каждый пост отдельно; ошибки поста логируются и не прерывают цикл
//
// Возвращает ошибку только если не удалась выборка.
func (s *Scheduler) Tick(ctx context.Context) error {
	start := s.now()
	cutoff := domain.TruncateToMinute(start)

	posts, err := s.store.FindDue(ctx, cutoff, s.batchSize)
	if err != nil {
		s.metrics.observeCycle(cycleResultError, s.now().Sub(start))
		return fmt.Errorf("%w: find due posts: %w", ErrStore, err)
	}
	s.metrics.duePosts.Set(float64(len(posts)))

	if len(posts) == 0 {
		s.metrics.observeCycle(cycleResultOK, s.now().Sub(start))
		return nil
	}

	s.logger.Debug("found due posts", "due", len(posts), "cutoff", cutoff)

	var published, failed, skipped int
	for i := range posts {
		// отмена между постами завершает цикл досрочно
		if ctx.Err() != nil {
			break
		}

		post := &posts[i]
		_, err := s.publishPost(ctx, post.ID)
		switch {
		case err == nil:
			published++
		case errors.Is(err, repo.ErrNotClaimed):
			skipped++
			s.logger.Debug("post not claimed, skipping", "post_id", post.ID)
		default:
			failed++
			s.logger.Error("failed to publish post",
				"post_id", post.ID,
				"error", err,
			)
		}
	}

	s.metrics.observeCycle(cycleResultOK, s.now().Sub(start))

	s.logger.Info("scheduler cycle completed",
		"cutoff", cutoff,
		"due", len(posts),
		"published", published,
		"failed", failed,
		"skipped", skipped,
	)

	return nil
}

// publishPost публикует один пост в транзакции PublishDue.
//
// Публикация выполняется на контексте, отвязанном от отмены вызывающего,
// с таймаутом publishTimeout: Stop не обрывает транзакцию на середине.
func (s *Scheduler) publishPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	post, err := s.store.PublishDue(ctx, id, s.now(), s.publishToGateway)
	switch {
	case err == nil:
		s.metrics.publishAttempts.WithLabelValues(attemptPublished).Inc()
		s.logger.Info("post published",
			"post_id", post.ID,
			"published_at", post.PublishedAt,
		)
		return post, nil

	case errors.Is(err, repo.ErrNotClaimed):
		s.metrics.publishAttempts.WithLabelValues(attemptSkipped).Inc()
		return nil, err

	case errors.Is(err, repo.ErrCommitFailed):
		// платформа приняла пост, но статус не сохранён:
		// следующий цикл опубликует его повторно
		s.metrics.publishAttempts.WithLabelValues(attemptFailed).Inc()
		s.logger.Warn("post published but not committed, duplicate publish possible",
			"post_id", id,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrStore, err)

	case errors.Is(err, ErrGatewayFailure):
		s.metrics.publishAttempts.WithLabelValues(attemptFailed).Inc()
		return nil, err

	default:
		s.metrics.publishAttempts.WithLabelValues(attemptFailed).Inc()
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
}

// publishToGateway вызывается внутри транзакции PublishDue.
func (s *Scheduler) publishToGateway(ctx context.Context, post *domain.Post) error {
	if err := s.gateway.Publish(ctx, post); err != nil {
		return fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	return nil
}

package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/repo"
	"github.com/shaiso/Herald/internal/scheduler"
	"github.com/shaiso/Herald/internal/telemetry"
)

// PostStore — операции хранилища, нужные API.
type PostStore interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	List(ctx context.Context, filter repo.PostFilter) ([]domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (repo.PostStats, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     PostStore
	scheduler *scheduler.Scheduler
	metrics   *telemetry.HTTPMetrics
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store     PostStore
	Scheduler *scheduler.Scheduler
	Metrics   *telemetry.HTTPMetrics // опционально
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

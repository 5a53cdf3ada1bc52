package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Herald/internal/domain"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// PublishFunc — внешний вызов публикации внутри транзакции PublishDue.
// Ошибка откатывает транзакцию.
type PublishFunc func(ctx context.Context, post *domain.Post) error

// Store — хранилище постов.
//
// Каждый вызов берёт собственное соединение и возвращает его до выхода.
type Store interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	List(ctx context.Context, filter PostFilter) ([]domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Transition сохраняет статусные поля поста, только если статус в БД
	// всё ещё равен from. Иначе ErrConflict.
	Transition(ctx context.Context, post *domain.Post, from domain.PostStatus) error

	// FindDue возвращает SCHEDULED посты с scheduled_at <= cutoff.
	FindDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Post, error)

	// PublishDue захватывает SCHEDULED пост, переводит его в PUBLISHED,
	// вызывает fn и фиксирует изменения только при успехе fn.
	PublishDue(ctx context.Context, id uuid.UUID, publishedAt time.Time, fn PublishFunc) (*domain.Post, error)

	CountByStatus(ctx context.Context, status domain.PostStatus) (int, error)
	Stats(ctx context.Context) (PostStats, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// PostFilter — параметры фильтрации постов.
type PostFilter struct {
	AuthorID    *uuid.UUID
	Status      domain.PostStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// PostStats — количество постов по статусам.
type PostStats struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Scheduled int `json:"scheduled"`
	Published int `json:"published"`
}

func (s *PostStats) add(status domain.PostStatus, n int) {
	s.Total += n
	switch status {
	case domain.PostStatusDraft:
		s.Draft += n
	case domain.PostStatusScheduled:
		s.Scheduled += n
	case domain.PostStatusPublished:
		s.Published += n
	}
}

// OpenConfig — параметры открытия хранилища.
type OpenConfig struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// ParseDriver приводит имя драйвера к одному из Driver*.
// Регистр не важен, принимаются синонимы "postgresql" и "sqlite3";
// пустая строка — postgres.
func ParseDriver(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DriverPostgres, "postgresql":
		return DriverPostgres, true
	case DriverSQLite, "sqlite3":
		return DriverSQLite, true
	case DriverMemory:
		return DriverMemory, true
	default:
		return "", false
	}
}

// Open открывает хранилище выбранного драйвера.
func Open(ctx context.Context, cfg OpenConfig) (Store, error) {
	driver, ok := ParseDriver(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}

	switch driver {
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case DriverMemory:
		return NewMemoryRepo(), nil
	default:
		pool, err := NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostRepo(pool), nil
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}

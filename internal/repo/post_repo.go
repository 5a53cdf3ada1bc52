package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Herald/internal/domain"
)

//go:embed schema_postgres.sql
var postgresSchema string

const postColumns = `id, author_id, title, content, status, scheduled_at, published_at, created_at, updated_at`

// PostRepo — репозиторий постов в PostgreSQL.
type PostRepo struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostRepo)(nil)

// NewPostRepo создаёт новый PostRepo.
func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// Migrate создаёт таблицы и индексы.
func (r *PostRepo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping проверяет соединение с БД.
func (r *PostRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул.
func (r *PostRepo) Close() error {
	r.pool.Close()
	return nil
}

// Create создаёт новый пост.
func (r *PostRepo) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Content,
		post.Status,
		post.ScheduledAt,
		post.PublishedAt,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID возвращает пост по ID.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(r.pool.QueryRow(ctx, query, id))
}

// List возвращает посты с фильтрацией.
func (r *PostRepo) List(ctx context.Context, filter PostFilter) ([]domain.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE ($1::uuid IS NULL OR author_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.AuthorID),
		nullString(string(filter.Status)),
		filter.CreatedFrom,
		filter.CreatedTo,
		normalizeLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

// Update обновляет заголовок и текст поста.
// Опубликованный пост не меняется: ErrConflict. Строка, заблокированная
// PublishDue, ждёт его commit и перепроверяет статус.
func (r *PostRepo) Update(ctx context.Context, post *domain.Post) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE posts SET title = $2, content = $3, updated_at = $4
		WHERE id = $1 AND status <> 'PUBLISHED'
	`, post.ID, post.Title, post.Content, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.notFoundOr(ctx, post.ID, ErrConflict)
	}
	return nil
}

// notFoundOr возвращает ErrNotFound, если поста нет, иначе err.
func (r *PostRepo) notFoundOr(ctx context.Context, id uuid.UUID, err error) error {
	var exists bool
	if qerr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists); qerr != nil {
		return fmt.Errorf("check post: %w", qerr)
	}
	if !exists {
		return ErrNotFound
	}
	return err
}

// Delete удаляет пост.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition сохраняет статусные поля, если статус в БД равен from.
func (r *PostRepo) Transition(ctx context.Context, post *domain.Post, from domain.PostStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $2, scheduled_at = $3, published_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`, post.ID, post.Status, post.ScheduledAt, post.PublishedAt, post.UpdatedAt, from)
	if err != nil {
		return fmt.Errorf("transition post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// FindDue возвращает посты, готовые к публикации.
// limit <= 0 — без ограничения.
func (r *PostRepo) FindDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Post, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'SCHEDULED'
		  AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, lim)
	if err != nil {
		return nil, fmt.Errorf("find due posts: %w", err)
	}
	return collectPosts(rows)
}

// PublishDue публикует пост в одной транзакции.
//
// Строка блокируется через FOR UPDATE SKIP LOCKED: параллельная попытка
// (ручная публикация или второй экземпляр scheduler) получит ErrNotClaimed
// и не вызовет fn повторно.
func (r *PostRepo) PublishDue(ctx context.Context, id uuid.UUID, publishedAt time.Time, fn PublishFunc) (*domain.Post, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	// после Commit откат ничего не делает
	defer tx.Rollback(ctx)

	post, err := scanPost(tx.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = $1 AND status = 'SCHEDULED'
		FOR UPDATE SKIP LOCKED
	`, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotClaimed
	}
	if err != nil {
		return nil, err
	}

	if err := post.MarkPublished(publishedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotClaimed, err)
	}

	if err := fn(ctx, post); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE posts
		SET status = $2, scheduled_at = NULL, published_at = $3, updated_at = $4
		WHERE id = $1
	`, post.ID, post.Status, post.PublishedAt, post.UpdatedAt)
	if err != nil {
		return post, fmt.Errorf("%w: update: %v", ErrCommitFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return post, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return post, nil
}

// CountByStatus возвращает количество постов в статусе.
func (r *PostRepo) CountByStatus(ctx context.Context, status domain.PostStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Stats возвращает количество постов по статусам.
func (r *PostRepo) Stats(ctx context.Context) (PostStats, error) {
	var stats PostStats

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("post stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.PostStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.add(status, n)
	}
	return stats, rows.Err()
}

// --- Helpers ---

// scanPost сканирует одну строку в Post.
func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&p.Content,
		&p.Status,
		&p.ScheduledAt,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

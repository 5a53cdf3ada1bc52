package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Herald/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// DefaultSQLitePath — путь к файлу БД по умолчанию.
const DefaultSQLitePath = "data/herald.db"

// SQLiteRepo — репозиторий постов в SQLite.
//
// Время хранится в unix-наносекундах (INTEGER), чтобы сравнение
// scheduled_at <= cutoff было числовым.
type SQLiteRepo struct {
	db     *sql.DB
	claims *claimSet
}

var _ Store = (*SQLiteRepo)(nil)

// OpenSQLite открывает (или создаёт) БД SQLite.
// Путь ":memory:" создаёт БД в памяти.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite допускает одного писателя; одно соединение сохраняет
	// единую БД для ":memory:". Вызов платформы в PublishDue идёт
	// вне соединения, под захватом claims.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	return &SQLiteRepo{db: db, claims: newClaimSet()}, nil
}

// Migrate создаёт таблицы и индексы.
func (r *SQLiteRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping проверяет соединение с БД.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает БД.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// Create создаёт новый пост.
func (r *SQLiteRepo) Create(ctx context.Context, post *domain.Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		post.ID.String(),
		post.AuthorID.String(),
		post.Title,
		post.Content,
		string(post.Status),
		unixNanoPtr(post.ScheduledAt),
		unixNanoPtr(post.PublishedAt),
		post.CreatedAt.UnixNano(),
		post.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID возвращает пост по ID.
func (r *SQLiteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id.String())
	return scanSQLitePost(row)
}

// List возвращает посты с фильтрацией.
func (r *SQLiteRepo) List(ctx context.Context, filter PostFilter) ([]domain.Post, error) {
	var where []string
	var args []any

	if id := nullUUID(filter.AuthorID); id != nil {
		where = append(where, "author_id = ?")
		args = append(args, id.String())
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UnixNano())
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedTo.UnixNano())
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, normalizeLimit(filter.Limit), filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectSQLitePosts(rows)
}

// Update обновляет заголовок и текст поста.
// Опубликованный или публикуемый пост не меняется: ErrConflict.
func (r *SQLiteRepo) Update(ctx context.Context, post *domain.Post) error {
	if !r.claims.acquire(post.ID) {
		return ErrConflict
	}
	defer r.claims.release(post.ID)

	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND status <> 'PUBLISHED'
	`, post.Title, post.Content, post.UpdatedAt.UnixNano(), post.ID.String())
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if err := expectAffected(result, ErrConflict); errors.Is(err, ErrConflict) {
		return r.notFoundOr(ctx, post.ID, err)
	} else if err != nil {
		return err
	}
	return nil
}

// Delete удаляет пост.
func (r *SQLiteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(result, ErrNotFound)
}

// Transition сохраняет статусные поля, если статус в БД равен from
// и пост не публикуется.
func (r *SQLiteRepo) Transition(ctx context.Context, post *domain.Post, from domain.PostStatus) error {
	if !r.claims.acquire(post.ID) {
		return ErrConflict
	}
	defer r.claims.release(post.ID)

	result, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, scheduled_at = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(post.Status),
		unixNanoPtr(post.ScheduledAt),
		unixNanoPtr(post.PublishedAt),
		post.UpdatedAt.UnixNano(),
		post.ID.String(),
		string(from),
	)
	if err != nil {
		return fmt.Errorf("transition post: %w", err)
	}
	return expectAffected(result, ErrConflict)
}

// FindDue возвращает посты, готовые к публикации.
// limit <= 0 — без ограничения.
func (r *SQLiteRepo) FindDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE status = 'SCHEDULED' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
		LIMIT ?
	`, cutoff.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("find due posts: %w", err)
	}
	return collectSQLitePosts(rows)
}

// PublishDue захватывает пост, вызывает fn без открытой транзакции
// и фиксирует PUBLISHED условным UPDATE.
//
// Пока идёт вызов платформы, соединение свободно: чтения, Ping и
// переходы других постов не ждут. Transition и Update этого поста
// получают ErrConflict, параллельный PublishDue — ErrNotClaimed.
func (r *SQLiteRepo) PublishDue(ctx context.Context, id uuid.UUID, publishedAt time.Time, fn PublishFunc) (*domain.Post, error) {
	if !r.claims.acquire(id) {
		return nil, ErrNotClaimed
	}
	defer r.claims.release(id)

	post, err := scanSQLitePost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ? AND status = 'SCHEDULED'`, id.String()))
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

	result, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, scheduled_at = NULL, published_at = ?, updated_at = ?
		WHERE id = ? AND status = 'SCHEDULED'
	`, string(post.Status), post.PublishedAt.UnixNano(), post.UpdatedAt.UnixNano(), post.ID.String())
	if err != nil {
		return post, fmt.Errorf("%w: update: %v", ErrCommitFailed, err)
	}
	if err := expectAffected(result, ErrCommitFailed); err != nil {
		return post, err
	}
	return post, nil
}

// CountByStatus возвращает количество постов в статусе.
func (r *SQLiteRepo) CountByStatus(ctx context.Context, status domain.PostStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Stats возвращает количество постов по статусам.
func (r *SQLiteRepo) Stats(ctx context.Context) (PostStats, error) {
	var stats PostStats

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("post stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.add(domain.PostStatus(status), n)
	}
	return stats, rows.Err()
}

// --- Helpers ---

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row sqlScanner) (*domain.Post, error) {
	var p domain.Post
	var id, authorID, status string
	var scheduledAt, publishedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&id, &authorID, &p.Title, &p.Content, &status,
		&scheduledAt, &publishedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse post id: %w", err)
	}
	if p.AuthorID, err = uuid.Parse(authorID); err != nil {
		return nil, fmt.Errorf("parse author id: %w", err)
	}
	p.Status = domain.PostStatus(status)
	p.ScheduledAt = timeFromNullNano(scheduledAt)
	p.PublishedAt = timeFromNullNano(publishedAt)
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &p, nil
}

func collectSQLitePosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanSQLitePost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func expectAffected(result sql.Result, errIfNone error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errIfNone
	}
	return nil
}

func unixNanoPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func timeFromNullNano(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

// notFoundOr возвращает ErrNotFound, если поста нет, иначе err.
func (r *SQLiteRepo) notFoundOr(ctx context.Context, id uuid.UUID, err error) error {
	var exists bool
	if qerr := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)`, id.String()).Scan(&exists); qerr != nil {
		return fmt.Errorf("check post: %w", qerr)
	}
	if !exists {
		return ErrNotFound
	}
	return err
}

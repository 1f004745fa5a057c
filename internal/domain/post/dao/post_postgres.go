package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

const postColumns = `
	id, project_id, user_id, platform, content, media_url, status,
	scheduled_at, schedule_status, schedule_error, published_at, created_at, updated_at
`

// PostPostgres implements PostRepository for PostgreSQL
type PostPostgres struct {
	pool *pgxpool.Pool
}

// NewPostPostgres creates a new PostgreSQL post repository
func NewPostPostgres(pool *pgxpool.Pool) *PostPostgres {
	return &PostPostgres{pool: pool}
}

// Create inserts a new post
func (r *PostPostgres) Create(ctx context.Context, post *entity.Post) error {
	query := `
		INSERT INTO posts (id, project_id, user_id, platform, content, media_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		post.ID,
		post.ProjectID,
		post.UserID,
		post.Platform,
		post.Content,
		nullString(post.MediaURL),
		post.Status,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID
func (r *PostPostgres) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}

	return post, nil
}

// Update updates an existing post
func (r *PostPostgres) Update(ctx context.Context, post *entity.Post) error {
	return updatePost(ctx, r.pool, post)
}

// Delete removes a post
func (r *PostPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

// List retrieves posts with filtering
func (r *PostPostgres) List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error) {
	where, args := postWhere(filter)
	query := `SELECT ` + postColumns + ` FROM posts` + where + ` ORDER BY created_at DESC`

	argNum := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, opts.Limit)
		argNum++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, opts.Offset)
	}

	return r.queryPosts(ctx, query, args...)
}

// Count returns the total count of posts matching the filter
func (r *PostPostgres) Count(ctx context.Context, filter PostFilter) (int64, error) {
	where, args := postWhere(filter)

	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM posts"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}

	return count, nil
}

// ListSchedulable returns approved, unscheduled posts of a project in creation order
func (r *PostPostgres) ListSchedulable(ctx context.Context, projectID string, limit int) ([]entity.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE project_id = $1 AND status = 'approved' AND scheduled_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2`

	return r.queryPosts(ctx, query, projectID, limit)
}

func (r *PostPostgres) queryPosts(ctx context.Context, query string, args ...any) ([]entity.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	posts := []entity.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}

	return posts, nil
}

func postWhere(filter PostFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filter.ProjectID != "" {
		where += fmt.Sprintf(" AND project_id = $%d", argNum)
		args = append(args, filter.ProjectID)
		argNum++
	}
	if filter.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filter.UserID)
		argNum++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
	}

	return where, args
}

// execer is satisfied by both the pool and a transaction
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func updatePost(ctx context.Context, db execer, post *entity.Post) error {
	query := `
		UPDATE posts
		SET platform = $2, content = $3, media_url = $4, status = $5,
		    scheduled_at = $6, schedule_status = $7, schedule_error = $8,
		    published_at = $9, updated_at = $10
		WHERE id = $1
	`

	_, err := db.Exec(ctx, query,
		post.ID,
		post.Platform,
		post.Content,
		nullString(post.MediaURL),
		post.Status,
		post.ScheduledAt,
		nullString(string(post.ScheduleStatus)),
		nullString(post.ScheduleError),
		post.PublishedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}

	return nil
}

func scanPost(row pgx.Row) (*entity.Post, error) {
	var post entity.Post
	var mediaURL, scheduleStatus, scheduleError *string
	var scheduledAt, publishedAt *time.Time

	err := row.Scan(
		&post.ID,
		&post.ProjectID,
		&post.UserID,
		&post.Platform,
		&post.Content,
		&mediaURL,
		&post.Status,
		&scheduledAt,
		&scheduleStatus,
		&scheduleError,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mediaURL != nil {
		post.MediaURL = *mediaURL
	}
	if scheduleStatus != nil {
		post.ScheduleStatus = entity.ScheduleStatus(*scheduleStatus)
	}
	if scheduleError != nil {
		post.ScheduleError = *scheduleError
	}
	post.ScheduledAt = scheduledAt
	post.PublishedAt = publishedAt

	return &post, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

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

const scheduledPostColumns = `
	id, post_id, user_id, platform, content, media_url, scheduled_time, status,
	retry_count, last_attempt, error_message, external_post_id, created_at, updated_at
`

// uniqueViolation is the SQLSTATE raised by the single active schedule index
const uniqueViolation = "23505"

// ScheduledPostPostgres implements ScheduledPostRepository for PostgreSQL
type ScheduledPostPostgres struct {
	pool *pgxpool.Pool
}

// NewScheduledPostPostgres creates a new PostgreSQL scheduled post repository
func NewScheduledPostPostgres(pool *pgxpool.Pool) *ScheduledPostPostgres {
	return &ScheduledPostPostgres{pool: pool}
}

// Schedule updates the post and inserts the scheduled post row in one transaction
func (r *ScheduledPostPostgres) Schedule(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO scheduled_posts (id, post_id, user_id, platform, content, media_url,
			                             scheduled_time, status, retry_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.Exec(ctx, query,
			sp.ID,
			sp.PostID,
			sp.UserID,
			sp.Platform,
			sp.Content,
			nullString(sp.MediaURL),
			sp.ScheduledTime,
			sp.Status,
			sp.RetryCount,
			sp.CreatedAt,
			sp.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return entity.ErrAlreadyScheduled
			}
			return fmt.Errorf("inserting scheduled post: %w", err)
		}

		return updatePost(ctx, tx, post)
	})
}

// Cancel stores the cancelled row and the unscheduled post in one transaction
func (r *ScheduledPostPostgres) Cancel(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE scheduled_posts SET status = $2, updated_at = $3
			WHERE id = $1 AND status = 'pending'
		`, sp.ID, sp.Status, sp.UpdatedAt)
		if err != nil {
			return fmt.Errorf("cancelling scheduled post: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrNotScheduled
		}

		return updatePost(ctx, tx, post)
	})
}

// SaveAttempt stores the attempt outcome and the post mirror in one transaction
func (r *ScheduledPostPostgres) SaveAttempt(ctx context.Context, sp *entity.ScheduledPost, post *entity.Post) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE scheduled_posts
			SET status = $2, retry_count = $3, last_attempt = $4, error_message = $5,
			    external_post_id = $6, updated_at = $7
			WHERE id = $1 AND status = 'pending'
		`
		tag, err := tx.Exec(ctx, query,
			sp.ID,
			sp.Status,
			sp.RetryCount,
			sp.LastAttempt,
			nullString(sp.ErrorMessage),
			nullString(sp.ExternalPostID),
			sp.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving attempt: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrScheduleNotPending
		}

		if post == nil {
			return nil
		}
		return updatePost(ctx, tx, post)
	})
}

// GetByID retrieves a scheduled post by ID
func (r *ScheduledPostPostgres) GetByID(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`

	sp, err := scanScheduledPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled post: %w", err)
	}

	return sp, nil
}

// GetActiveByPostID returns the pending or published row of a post
func (r *ScheduledPostPostgres) GetActiveByPostID(ctx context.Context, postID string) (*entity.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE post_id = $1 AND status IN ('pending', 'published')
		ORDER BY created_at DESC
		LIMIT 1`

	sp, err := scanScheduledPost(r.pool.QueryRow(ctx, query, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning active scheduled post: %w", err)
	}

	return sp, nil
}

// List retrieves scheduled posts with filtering
func (r *ScheduledPostPostgres) List(ctx context.Context, filter ScheduledPostFilter, opts ListOptions) ([]entity.ScheduledPost, error) {
	where, args := scheduledPostWhere(filter)
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts` + where + ` ORDER BY scheduled_time DESC`

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

	return r.query(ctx, query, args...)
}

// Count returns the total count of scheduled posts matching the filter
func (r *ScheduledPostPostgres) Count(ctx context.Context, filter ScheduledPostFilter) (int64, error) {
	where, args := scheduledPostWhere(filter)

	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM scheduled_posts"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scheduled posts: %w", err)
	}

	return count, nil
}

// ListDue retrieves pending rows that are due for publishing
func (r *ScheduledPostPostgres) ListDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE status = 'pending' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC
		LIMIT $2`

	return r.query(ctx, query, now, limit)
}

// ListPendingTimes returns instants held by a user's pending rows
func (r *ScheduledPostPostgres) ListPendingTimes(ctx context.Context, userID string, from time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_time FROM scheduled_posts
		WHERE user_id = $1 AND status = 'pending' AND scheduled_time >= $2
		ORDER BY scheduled_time
	`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("querying pending times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning pending time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending times: %w", err)
	}

	return times, nil
}

// Claim stamps last_attempt so overlapping publishers skip the row while the lease holds
func (r *ScheduledPostPostgres) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts
		SET last_attempt = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'
		  AND (last_attempt IS NULL OR last_attempt <= $3)
	`, id, now, now.Add(-lease))
	if err != nil {
		return false, fmt.Errorf("claiming scheduled post: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *ScheduledPostPostgres) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (r *ScheduledPostPostgres) query(ctx context.Context, query string, args ...any) ([]entity.ScheduledPost, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled posts: %w", err)
	}
	defer rows.Close()

	items := []entity.ScheduledPost{}
	for rows.Next() {
		sp, err := scanScheduledPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		items = append(items, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled posts: %w", err)
	}

	return items, nil
}

func scheduledPostWhere(filter ScheduledPostFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filter.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filter.UserID)
		argNum++
	}
	if filter.PostID != "" {
		where += fmt.Sprintf(" AND post_id = $%d", argNum)
		args = append(args, filter.PostID)
		argNum++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.Platform != nil {
		where += fmt.Sprintf(" AND platform = $%d", argNum)
		args = append(args, *filter.Platform)
	}

	return where, args
}

func scanScheduledPost(row pgx.Row) (*entity.ScheduledPost, error) {
	var sp entity.ScheduledPost
	var mediaURL, errorMessage, externalPostID *string

	err := row.Scan(
		&sp.ID,
		&sp.PostID,
		&sp.UserID,
		&sp.Platform,
		&sp.Content,
		&mediaURL,
		&sp.ScheduledTime,
		&sp.Status,
		&sp.RetryCount,
		&sp.LastAttempt,
		&errorMessage,
		&externalPostID,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mediaURL != nil {
		sp.MediaURL = *mediaURL
	}
	if errorMessage != nil {
		sp.ErrorMessage = *errorMessage
	}
	if externalPostID != nil {
		sp.ExternalPostID = *externalPostID
	}

	return &sp, nil
}

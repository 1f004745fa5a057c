package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// ConnectionPostgres implements ConnectionRepository over the social_connections table.
// Rows are written by the OAuth flow that lives outside this service.
type ConnectionPostgres struct {
	pool *pgxpool.Pool
}

// NewConnectionPostgres creates a new PostgreSQL connection repository
func NewConnectionPostgres(pool *pgxpool.Pool) *ConnectionPostgres {
	return &ConnectionPostgres{pool: pool}
}

// Get retrieves the most recently updated connection of a user on a platform
func (r *ConnectionPostgres) Get(ctx context.Context, userID string, platform entity.Platform) (*entity.Connection, error) {
	query := `
		SELECT user_id, platform, external_account_id, access_token, expires_at, created_at, updated_at
		FROM social_connections
		WHERE user_id = $1 AND platform = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var c entity.Connection
	err := r.pool.QueryRow(ctx, query, userID, platform).Scan(
		&c.UserID,
		&c.Platform,
		&c.ExternalAccountID,
		&c.AccessToken,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying connection: %w", err)
	}

	return &c, nil
}

// ListByUser returns all connections of a user
func (r *ConnectionPostgres) ListByUser(ctx context.Context, userID string) ([]entity.Connection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, platform, external_account_id, expires_at, created_at, updated_at
		FROM social_connections
		WHERE user_id = $1
		ORDER BY platform
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	connections := []entity.Connection{}
	for rows.Next() {
		var c entity.Connection
		err := rows.Scan(&c.UserID, &c.Platform, &c.ExternalAccountID, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		connections = append(connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}

	return connections, nil
}

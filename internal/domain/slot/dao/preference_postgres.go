package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/domain/slot/entity"
)

// PreferencePostgres implements PreferenceRepository for PostgreSQL
type PreferencePostgres struct {
	pool *pgxpool.Pool
}

// NewPreferencePostgres creates a new PostgreSQL preference repository
func NewPreferencePostgres(pool *pgxpool.Pool) *PreferencePostgres {
	return &PreferencePostgres{pool: pool}
}

// Get retrieves a preference and its timeslots
func (r *PreferencePostgres) Get(ctx context.Context, userID string) (*entity.Preference, error) {
	query := `
		SELECT user_id, timezone, lead_time_minutes, created_at, updated_at
		FROM schedule_preferences
		WHERE user_id = $1
	`

	var pref entity.Preference
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.Timezone,
		&pref.LeadTimeMinutes,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning preference: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT iso_day_of_week, minutes_from_midnight, active
		FROM preferred_timeslots
		WHERE user_id = $1
		ORDER BY iso_day_of_week, minutes_from_midnight
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying timeslots: %w", err)
	}
	defer rows.Close()

	pref.Timeslots = []entity.Timeslot{}
	for rows.Next() {
		var ts entity.Timeslot
		if err := rows.Scan(&ts.ISODayOfWeek, &ts.MinutesFromMidnight, &ts.Active); err != nil {
			return nil, fmt.Errorf("scanning timeslot: %w", err)
		}
		pref.Timeslots = append(pref.Timeslots, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timeslots: %w", err)
	}

	return &pref, nil
}

// Save upserts the preference row and replaces the timeslots in one transaction
func (r *PreferencePostgres) Save(ctx context.Context, pref *entity.Preference) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_preferences (user_id, timezone, lead_time_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			lead_time_minutes = EXCLUDED.lead_time_minutes,
			updated_at = EXCLUDED.updated_at
	`, pref.UserID, pref.Timezone, pref.LeadTimeMinutes, pref.CreatedAt, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting preference: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM preferred_timeslots WHERE user_id = $1", pref.UserID); err != nil {
		return fmt.Errorf("clearing timeslots: %w", err)
	}

	if len(pref.Timeslots) > 0 {
		batch := &pgx.Batch{}
		for _, ts := range pref.Timeslots {
			batch.Queue(`
				INSERT INTO preferred_timeslots (user_id, iso_day_of_week, minutes_from_midnight, active)
				VALUES ($1, $2, $3, $4)
			`, pref.UserID, ts.ISODayOfWeek, ts.MinutesFromMidnight, ts.Active)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting timeslots: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing preference: %w", err)
	}

	return nil
}

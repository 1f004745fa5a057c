package dao

import (
	"context"

	"github.com/vadim/postpilot/internal/domain/slot/entity"
)

// PreferenceRepository defines the interface for scheduling preference data access
type PreferenceRepository interface {
	// Get retrieves a user's preference with all of its timeslots, nil if none exists
	Get(ctx context.Context, userID string) (*entity.Preference, error)

	// Save upserts the preference and replaces its timeslot list
	Save(ctx context.Context, pref *entity.Preference) error
}

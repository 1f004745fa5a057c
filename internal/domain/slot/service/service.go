package service

import (
	"context"
	"errors"
	"time"

	"github.com/vadim/postpilot/internal/domain/slot/dao"
	"github.com/vadim/postpilot/internal/domain/slot/entity"
	"github.com/vadim/postpilot/internal/domain/slot/selector"
)

// ErrPreferenceNotFound is returned when a user has never saved preferences
var ErrPreferenceNotFound = errors.New("schedule preference not found")

// Config holds slot selection settings
type Config struct {
	HorizonDays        int
	DefaultLeadMinutes int
	DefaultTimezone    string
}

// Service handles business logic for scheduling preferences
type Service struct {
	prefs dao.PreferenceRepository
	cfg   Config
}

// New creates a new preference service
func New(prefs dao.PreferenceRepository, cfg Config) *Service {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = selector.DefaultHorizonDays
	}
	return &Service{
		prefs: prefs,
		cfg:   cfg,
	}
}

// GetPreference retrieves a user's preference
func (s *Service) GetPreference(ctx context.Context, userID string) (*entity.Preference, error) {
	if userID == "" {
		return nil, entity.ErrEmptyUserID
	}

	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, ErrPreferenceNotFound
	}

	return pref, nil
}

// SaveInput represents input for saving a preference
type SaveInput struct {
	UserID          string
	Timezone        *string
	LeadTimeMinutes *int
	Timeslots       []entity.Timeslot
}

// SavePreference creates or replaces a user's preference
func (s *Service) SavePreference(ctx context.Context, in SaveInput) (*entity.Preference, error) {
	if in.UserID == "" {
		return nil, entity.ErrEmptyUserID
	}

	now := time.Now()

	pref, err := s.prefs.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		pref = &entity.Preference{
			UserID:          in.UserID,
			Timezone:        s.cfg.DefaultTimezone,
			LeadTimeMinutes: s.cfg.DefaultLeadMinutes,
			CreatedAt:       now,
		}
	}

	if in.Timezone != nil {
		pref.Timezone = *in.Timezone
	}
	if in.LeadTimeMinutes != nil {
		pref.LeadTimeMinutes = *in.LeadTimeMinutes
	}
	if in.Timeslots != nil {
		pref.Timeslots = in.Timeslots
	}
	if pref.Timeslots == nil {
		pref.Timeslots = []entity.Timeslot{}
	}
	pref.UpdatedAt = now

	if err := pref.Validate(); err != nil {
		return nil, err
	}

	if err := s.prefs.Save(ctx, pref); err != nil {
		return nil, err
	}

	return pref, nil
}

// Plan resolves a user's preference into a ready-to-use slot plan.
// Returns entity.ErrNoPreferences when nothing usable is configured.
func (s *Service) Plan(ctx context.Context, userID string) (*Plan, error) {
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, entity.ErrNoPreferences
	}

	slots := pref.ActiveTimeslots()
	if len(slots) == 0 {
		return nil, entity.ErrNoPreferences
	}

	loc, err := pref.Location()
	if err != nil {
		return nil, entity.ErrInvalidTimezone
	}

	return &Plan{
		Lead:        pref.LeadTime(),
		Location:    loc,
		Slots:       slots,
		HorizonDays: s.cfg.HorizonDays,
	}, nil
}

// NextSlot previews the next slot for a user as of now
func (s *Service) NextSlot(ctx context.Context, userID string, now time.Time) (time.Time, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return plan.Next(plan.Earliest(now), nil)
}

// Plan is a resolved, storage-free view of a user's scheduling preference
type Plan struct {
	Lead        time.Duration
	Location    *time.Location
	Slots       []entity.Timeslot
	HorizonDays int
}

// Earliest returns the first instant a post may be scheduled at
func (p *Plan) Earliest(now time.Time) time.Time {
	return now.Add(p.Lead)
}

// Next returns the first slot at or after from that is not taken
func (p *Plan) Next(from time.Time, taken func(time.Time) bool) (time.Time, error) {
	return selector.Next(selector.Request{
		From:        from,
		Location:    p.Location,
		Slots:       p.Slots,
		HorizonDays: p.HorizonDays,
		Taken:       taken,
	})
}

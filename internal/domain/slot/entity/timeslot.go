package entity

import (
	"sort"
	"time"
)

const (
	// MinutesPerDay bounds MinutesFromMidnight
	MinutesPerDay = 24 * 60

	// MaxLeadTimeMinutes caps the lead time at one week
	MaxLeadTimeMinutes = 7 * MinutesPerDay

	// MaxTimeslots is the maximum number of timeslots per user
	MaxTimeslots = 100
)

// Timeslot is a recurring weekly (day, minute-of-day) pair a user is willing to publish at
type Timeslot struct {
	// ISODayOfWeek is 1 for Monday through 7 for Sunday
	ISODayOfWeek        int  `json:"iso_day_of_week" yaml:"day"`
	MinutesFromMidnight int  `json:"minutes_from_midnight" yaml:"minute"`
	Active              bool `json:"active" yaml:"active"`
}

// Validate checks the day and minute ranges
func (t Timeslot) Validate() error {
	if t.ISODayOfWeek < 1 || t.ISODayOfWeek > 7 {
		return ErrInvalidDayOfWeek
	}
	if t.MinutesFromMidnight < 0 || t.MinutesFromMidnight >= MinutesPerDay {
		return ErrInvalidMinuteOfDay
	}
	return nil
}

// Hour returns the hour component of the slot
func (t Timeslot) Hour() int {
	return t.MinutesFromMidnight / 60
}

// Minute returns the minute component of the slot
func (t Timeslot) Minute() int {
	return t.MinutesFromMidnight % 60
}

// Preference is the per-user scheduling configuration
type Preference struct {
	UserID          string     `json:"user_id"`
	Timezone        string     `json:"timezone"`
	LeadTimeMinutes int        `json:"lead_time_minutes"`
	Timeslots       []Timeslot `json:"timeslots"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Validate validates the preference and all of its timeslots
func (p *Preference) Validate() error {
	if p.UserID == "" {
		return ErrEmptyUserID
	}
	if _, err := p.Location(); err != nil {
		return ErrInvalidTimezone
	}
	if p.LeadTimeMinutes < 0 || p.LeadTimeMinutes > MaxLeadTimeMinutes {
		return ErrInvalidLeadTime
	}
	if len(p.Timeslots) > MaxTimeslots {
		return ErrTooManyTimeslots
	}

	seen := make(map[[2]int]struct{}, len(p.Timeslots))
	for _, ts := range p.Timeslots {
		if err := ts.Validate(); err != nil {
			return err
		}
		key := [2]int{ts.ISODayOfWeek, ts.MinutesFromMidnight}
		if _, ok := seen[key]; ok {
			return ErrDuplicateTimeslot
		}
		seen[key] = struct{}{}
	}

	return nil
}

// Location resolves the preference timezone, UTC when empty
func (p *Preference) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

// LeadTime returns the lead time as a duration
func (p *Preference) LeadTime() time.Duration {
	return time.Duration(p.LeadTimeMinutes) * time.Minute
}

// ActiveTimeslots returns the active slots sorted by day then minute
func (p *Preference) ActiveTimeslots() []Timeslot {
	return ActiveSorted(p.Timeslots)
}

// ActiveSorted filters out inactive slots and sorts the rest by day then minute
func ActiveSorted(slots []Timeslot) []Timeslot {
	active := make([]Timeslot, 0, len(slots))
	for _, s := range slots {
		if s.Active {
			active = append(active, s)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].ISODayOfWeek != active[j].ISODayOfWeek {
			return active[i].ISODayOfWeek < active[j].ISODayOfWeek
		}
		return active[i].MinutesFromMidnight < active[j].MinutesFromMidnight
	})

	return active
}

// ISOWeekday converts a Go weekday (Sunday = 0) to ISO numbering (Monday = 1 .. Sunday = 7)
func ISOWeekday(wd time.Weekday) int {
	return (int(wd)+6)%7 + 1
}

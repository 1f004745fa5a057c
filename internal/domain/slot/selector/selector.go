// Package selector finds the next publishing instant matching a weekly timeslot list.
//
// Everything here is a pure function of its inputs: no clock, no storage.
package selector

import (
	"time"

	"github.com/vadim/postpilot/internal/domain/slot/entity"
)

// DefaultHorizonDays is used when Request.HorizonDays is not set
const DefaultHorizonDays = 60

// Request describes a single slot lookup
type Request struct {
	// From is the earliest acceptable instant (inclusive)
	From time.Time

	// Location is the timezone the timeslots are expressed in. Defaults to UTC.
	Location *time.Location

	// Slots may be unsorted and may contain inactive entries
	Slots []entity.Timeslot

	// HorizonDays bounds the number of calendar days scanned, starting with the day of From
	HorizonDays int

	// Taken reports instants that are already assigned and must be skipped. Optional.
	Taken func(time.Time) bool
}

// Next returns the first instant >= From that falls on an active timeslot.
// Returns entity.ErrNoPreferences when no slot is active and entity.ErrNoSlot
// when the horizon is exhausted.
func Next(req Request) (time.Time, error) {
	slots := entity.ActiveSorted(req.Slots)
	if len(slots) == 0 {
		return time.Time{}, entity.ErrNoPreferences
	}

	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	// Slots have minute granularity, so anything inside a minute rounds up
	earliest := req.From.In(loc)
	if t := earliest.Truncate(time.Minute); t.Before(earliest) {
		earliest = t.Add(time.Minute)
	}

	year, month, day := earliest.Date()
	for i := 0; i < horizon; i++ {
		date := time.Date(year, month, day+i, 0, 0, 0, 0, loc)
		isoDay := entity.ISOWeekday(date.Weekday())

		for _, s := range slots {
			if s.ISODayOfWeek != isoDay {
				continue
			}

			y, m, d := date.Date()
			candidate := time.Date(y, m, d, s.Hour(), s.Minute(), 0, 0, loc)
			// Wall-clock time does not exist on this date (DST gap)
			if candidate.Hour()*60+candidate.Minute() != s.MinutesFromMidnight {
				continue
			}
			if candidate.Before(earliest) {
				continue
			}
			if req.Taken != nil && req.Taken(candidate) {
				continue
			}
			return candidate, nil
		}
	}

	return time.Time{}, entity.ErrNoSlot
}

// NextAfterLead returns the first slot at or after now + leadMinutes
func NextAfterLead(now time.Time, leadMinutes int, slots []entity.Timeslot, loc *time.Location, horizonDays int) (time.Time, error) {
	return Next(Request{
		From:        now.Add(time.Duration(leadMinutes) * time.Minute),
		Location:    loc,
		Slots:       slots,
		HorizonDays: horizonDays,
	})
}

// TakenSet is a lookup of already assigned instants keyed by unix minute
type TakenSet map[int64]struct{}

// NewTakenSet builds a TakenSet from the given instants
func NewTakenSet(times ...time.Time) TakenSet {
	s := make(TakenSet, len(times))
	for _, t := range times {
		s.Add(t)
	}
	return s
}

// Add marks t as taken
func (s TakenSet) Add(t time.Time) {
	s[t.Unix()/60] = struct{}{}
}

// Has reports whether t is taken
func (s TakenSet) Has(t time.Time) bool {
	_, ok := s[t.Unix()/60]
	return ok
}

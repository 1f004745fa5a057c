package selector

import (
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/postpilot/internal/domain/slot/entity"
)

// 2024-01-01 is a Monday
func monday(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func slot(day, minute int) entity.Timeslot {
	return entity.Timeslot{ISODayOfWeek: day, MinutesFromMidnight: minute, Active: true}
}

func TestNextAfterLead_SameDay(t *testing.T) {
	got, err := NextAfterLead(monday(8, 0), 30, []entity.Timeslot{slot(1, 540)}, time.UTC, 60)
	require.NoError(t, err)
	assert.Equal(t, monday(9, 0), got)
}

func TestNextAfterLead_PastSlotRollsToNextWeek(t *testing.T) {
	got, err := NextAfterLead(monday(9, 15), 30, []entity.Timeslot{slot(1, 540)}, time.UTC, 60)
	require.NoError(t, err)
	assert.Equal(t, monday(9, 0).AddDate(0, 0, 7), got)
}

func TestNextAfterLead_LeadPushesPastSlot(t *testing.T) {
	// 08:45 + 30m = 09:15, so the 09:00 slot is no longer eligible today
	got, err := NextAfterLead(monday(8, 45), 30, []entity.Timeslot{slot(1, 540), slot(1, 600)}, time.UTC, 60)
	require.NoError(t, err)
	assert.Equal(t, monday(10, 0), got)
}

func TestNext_ExactBoundaryIsInclusive(t *testing.T) {
	got, err := Next(Request{From: monday(9, 0), Slots: []entity.Timeslot{slot(1, 540)}})
	require.NoError(t, err)
	assert.Equal(t, monday(9, 0), got)
}

func TestNext_SecondsRoundUp(t *testing.T) {
	slots := []entity.Timeslot{slot(1, 540)}

	got, err := Next(Request{From: monday(8, 59).Add(30 * time.Second), Slots: slots})
	require.NoError(t, err)
	assert.Equal(t, monday(9, 0), got)

	got, err = Next(Request{From: monday(9, 0).Add(30 * time.Second), Slots: slots})
	require.NoError(t, err)
	assert.Equal(t, monday(9, 0).AddDate(0, 0, 7), got)
}

func TestNext_SundayMapsToSeven(t *testing.T) {
	got, err := Next(Request{From: monday(0, 0), Slots: []entity.Timeslot{slot(7, 600)}})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Sunday, got.Weekday())
}

func TestNext_UnsortedInputPicksEarliest(t *testing.T) {
	slots := []entity.Timeslot{slot(3, 900), slot(2, 60), slot(2, 30), slot(5, 0)}

	got, err := Next(Request{From: monday(12, 0), Slots: slots})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 30, 0, 0, time.UTC), got)
}

func TestNext_LaterDayConsidersEarlySlots(t *testing.T) {
	// Tuesday 01:00 is earlier in the day than "now" but on a later day, so it is eligible
	got, err := Next(Request{From: monday(23, 0), Slots: []entity.Timeslot{slot(2, 60)}})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), got)
}

func TestNext_NoActiveSlots(t *testing.T) {
	_, err := Next(Request{From: monday(8, 0)})
	assert.ErrorIs(t, err, entity.ErrNoPreferences)

	inactive := []entity.Timeslot{{ISODayOfWeek: 1, MinutesFromMidnight: 540, Active: false}}
	_, err = Next(Request{From: monday(8, 0), Slots: inactive})
	assert.ErrorIs(t, err, entity.ErrNoPreferences)
}

func TestNext_HorizonExhausted(t *testing.T) {
	// Only a Sunday slot, but the horizon covers Monday..Wednesday
	_, err := Next(Request{From: monday(8, 0), Slots: []entity.Timeslot{slot(7, 540)}, HorizonDays: 3})
	assert.ErrorIs(t, err, entity.ErrNoSlot)
}

func TestNext_AllTaken(t *testing.T) {
	_, err := Next(Request{
		From:        monday(8, 0),
		Slots:       []entity.Timeslot{slot(1, 540)},
		HorizonDays: 30,
		Taken:       func(time.Time) bool { return true },
	})
	assert.ErrorIs(t, err, entity.ErrNoSlot)
}

func TestNext_SkipsTaken(t *testing.T) {
	taken := NewTakenSet(monday(9, 0))

	got, err := Next(Request{
		From:  monday(8, 0),
		Slots: []entity.Timeslot{slot(1, 540), slot(1, 720)},
		Taken: taken.Has,
	})
	require.NoError(t, err)
	assert.Equal(t, monday(12, 0), got)
}

func TestNext_Timezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 12:00 UTC is 07:00 EST on Monday 2024-01-01
	got, err := Next(Request{From: monday(12, 0), Location: ny, Slots: []entity.Timeslot{slot(1, 540)}})
	require.NoError(t, err)
	assert.True(t, got.Equal(monday(14, 0)), "got %s", got.UTC())
	assert.Equal(t, 9, got.Hour())
}

func TestNext_TimezoneChangesWeekday(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// Monday 20:00 UTC is already Tuesday 05:00 in Tokyo, so Monday slots there are a week out
	got, err := Next(Request{From: monday(20, 0), Location: tokyo, Slots: []entity.Timeslot{slot(1, 540), slot(2, 480)}})
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, got.Weekday())
	assert.Equal(t, 8, got.Hour())
}

func TestNext_SkipsSlotInDSTGap(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 02:30 does not exist on Sunday 2026-03-29 in Berlin
	from := time.Date(2026, 3, 28, 12, 0, 0, 0, berlin)
	got, err := Next(Request{From: from, Location: berlin, Slots: []entity.Timeslot{slot(7, 150)}})
	require.NoError(t, err)

	assert.True(t, got.Equal(time.Date(2026, 4, 5, 2, 30, 0, 0, berlin)), "got %s", got)
	assert.Equal(t, time.Sunday, got.Weekday())
	assert.Equal(t, 150, got.Hour()*60+got.Minute())
}

func TestNext_DSTGapFallsThroughToLaterSlot(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	from := time.Date(2026, 3, 28, 12, 0, 0, 0, berlin)
	got, err := Next(Request{From: from, Location: berlin, Slots: []entity.Timeslot{slot(7, 150), slot(7, 210)}})
	require.NoError(t, err)

	assert.True(t, got.Equal(time.Date(2026, 3, 29, 3, 30, 0, 0, berlin)), "got %s", got)
	_, offset := got.Zone()
	assert.Equal(t, 2*60*60, offset)
}

func TestISOWeekday(t *testing.T) {
	cases := map[time.Weekday]int{
		time.Monday:    1,
		time.Tuesday:   2,
		time.Wednesday: 3,
		time.Thursday:  4,
		time.Friday:    5,
		time.Saturday:  6,
		time.Sunday:    7,
	}
	for wd, want := range cases {
		assert.Equal(t, want, entity.ISOWeekday(wd), wd.String())
	}
}

func TestTakenSet_MinuteGranularity(t *testing.T) {
	s := NewTakenSet(monday(9, 0))
	assert.True(t, s.Has(monday(9, 0).Add(20*time.Second)))
	assert.False(t, s.Has(monday(9, 1)))
}

// Randomized check against a brute-force minute scan
func TestNext_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		var slots []entity.Timeslot
		for n := rng.Intn(6) + 1; n > 0; n-- {
			slots = append(slots, entity.Timeslot{
				ISODayOfWeek:        rng.Intn(7) + 1,
				MinutesFromMidnight: rng.Intn(entity.MinutesPerDay),
				Active:              rng.Intn(4) != 0,
			})
		}

		now := monday(0, 0).Add(time.Duration(rng.Intn(14*entity.MinutesPerDay)) * time.Minute)
		lead := rng.Intn(3 * entity.MinutesPerDay)

		got, err := NextAfterLead(now, lead, slots, time.UTC, 60)
		want, found := bruteForce(now.Add(time.Duration(lead)*time.Minute), slots)

		if !found {
			require.ErrorIs(t, err, entity.ErrNoPreferences, "case %d", i)
			continue
		}
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, want, got, "case %d", i)
		assert.False(t, got.Before(now.Add(time.Duration(lead)*time.Minute)), "case %d", i)
	}
}

func bruteForce(from time.Time, slots []entity.Timeslot) (time.Time, bool) {
	for m := 0; m <= 8*entity.MinutesPerDay; m++ {
		t := from.Add(time.Duration(m) * time.Minute)
		for _, s := range slots {
			if s.Active && s.ISODayOfWeek == entity.ISOWeekday(t.Weekday()) && s.MinutesFromMidnight == t.Hour()*60+t.Minute() {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

package entity

import "errors"

// Domain errors for scheduling preferences
var (
	// Validation errors
	ErrEmptyUserID        = errors.New("user ID is required")
	ErrInvalidTimezone    = errors.New("timezone is not a valid IANA location")
	ErrInvalidLeadTime    = errors.New("lead time must be between 0 and 10080 minutes")
	ErrInvalidDayOfWeek   = errors.New("day of week must be between 1 (Monday) and 7 (Sunday)")
	ErrInvalidMinuteOfDay = errors.New("minutes from midnight must be between 0 and 1439")
	ErrDuplicateTimeslot  = errors.New("duplicate timeslot")
	ErrTooManyTimeslots   = errors.New("too many timeslots")

	// Selection errors
	ErrNoPreferences = errors.New("no scheduling preferences or active timeslots configured")
	ErrNoSlot        = errors.New("no available timeslot within the scheduling horizon")
)

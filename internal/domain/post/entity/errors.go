package entity

import "errors"

// Domain errors for posts and scheduled posts
var (
	// Validation errors
	ErrEmptyProjectID      = errors.New("project ID is required")
	ErrEmptyUserID         = errors.New("user ID is required")
	ErrEmptyContent        = errors.New("content is required")
	ErrContentTooLong      = errors.New("content exceeds maximum length of 3000 characters")
	ErrInvalidPlatform     = errors.New("platform must be linkedin or x")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrScheduledTimeInPast = errors.New("scheduled time must be in the future")

	// Business logic errors
	ErrPostNotFound          = errors.New("post not found")
	ErrScheduledPostNotFound = errors.New("scheduled post not found")
	ErrPostNotEditable       = errors.New("post cannot be edited in current status")
	ErrPostNotDeletable      = errors.New("scheduled or published posts cannot be deleted")
	ErrInvalidTransition     = errors.New("post status does not allow this transition")
	ErrPostNotSchedulable    = errors.New("only approved or failed posts can be scheduled")
	ErrAlreadyScheduled      = errors.New("post already has an active schedule")
	ErrNotScheduled          = errors.New("post has no pending schedule")
	ErrScheduleNotPending    = errors.New("scheduled post is no longer pending")

	// Publishing errors
	ErrUnsupportedPlatform = errors.New("no publisher configured for platform")
	ErrNoConnection        = errors.New("no social connection for user and platform")
	ErrConnectionExpired   = errors.New("social connection access token has expired")
)

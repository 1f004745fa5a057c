package http

import (
	"errors"
	"net/http"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/policy"
	slotentity "github.com/vadim/postpilot/internal/domain/slot/entity"
	slotservice "github.com/vadim/postpilot/internal/domain/slot/service"
	"github.com/vadim/postpilot/internal/httpx/response"
	"github.com/vadim/postpilot/internal/telemetry"
)

var notFoundErrors = []error{
	entity.ErrPostNotFound,
	entity.ErrScheduledPostNotFound,
	slotservice.ErrPreferenceNotFound,
}

var conflictErrors = []error{
	entity.ErrPostNotEditable,
	entity.ErrPostNotDeletable,
	entity.ErrInvalidTransition,
	entity.ErrPostNotSchedulable,
	entity.ErrAlreadyScheduled,
	entity.ErrNotScheduled,
	entity.ErrScheduleNotPending,
}

var validationErrors = []error{
	entity.ErrEmptyProjectID,
	entity.ErrEmptyUserID,
	entity.ErrEmptyContent,
	entity.ErrContentTooLong,
	entity.ErrInvalidPlatform,
	entity.ErrInvalidStatus,
	entity.ErrScheduledTimeInPast,
	slotentity.ErrEmptyUserID,
	slotentity.ErrInvalidTimezone,
	slotentity.ErrInvalidLeadTime,
	slotentity.ErrInvalidDayOfWeek,
	slotentity.ErrInvalidMinuteOfDay,
	slotentity.ErrDuplicateTimeslot,
	slotentity.ErrTooManyTimeslots,
}

// handleDomainError maps domain errors to HTTP responses
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isAny(err, notFoundErrors):
		response.NotFound(w, err.Error())
	case isAny(err, conflictErrors):
		response.Conflict(w, err.Error())
	case isAny(err, validationErrors):
		response.BadRequest(w, err.Error())
	case errors.Is(err, slotentity.ErrNoPreferences), errors.Is(err, slotentity.ErrNoSlot):
		response.Unprocessable(w, policy.ErrorCode(err), err.Error())
	default:
		telemetry.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		response.InternalError(w, "internal server error")
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

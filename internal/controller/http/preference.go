package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/domain/slot/entity"
	"github.com/vadim/postpilot/internal/domain/slot/service"
	"github.com/vadim/postpilot/internal/httpx/response"
)

// PreferenceService defines scheduling preference operations
type PreferenceService interface {
	GetPreference(ctx context.Context, userID string) (*entity.Preference, error)
	SavePreference(ctx context.Context, in service.SaveInput) (*entity.Preference, error)
	NextSlot(ctx context.Context, userID string, now time.Time) (time.Time, error)
}

// PreferenceHandler handles HTTP requests for scheduling preferences
type PreferenceHandler struct {
	prefs PreferenceService
	now   func() time.Time
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(prefs PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, now: time.Now}
}

// RegisterRoutes registers preference routes
func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/schedule-preferences", func(r chi.Router) {
		r.Get("/", h.Get())
		r.Put("/", h.Save())
		r.Get("/next-slot", h.NextSlot())
	})
}

// Get handles GET /users/{userID}/schedule-preferences
func (h *PreferenceHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pref, err := h.prefs.GetPreference(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, pref)
	}
}

// SavePreferenceRequest represents the request body for saving preferences.
// Omitted fields keep their stored values; timeslots, when present, replace the list.
type SavePreferenceRequest struct {
	Timezone        *string           `json:"timezone,omitempty"`
	LeadTimeMinutes *int              `json:"lead_time_minutes,omitempty"`
	Timeslots       []entity.Timeslot `json:"timeslots,omitempty"`
}

// Save handles PUT /users/{userID}/schedule-preferences
func (h *PreferenceHandler) Save() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SavePreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		pref, err := h.prefs.SavePreference(r.Context(), service.SaveInput{
			UserID:          chi.URLParam(r, "userID"),
			Timezone:        req.Timezone,
			LeadTimeMinutes: req.LeadTimeMinutes,
			Timeslots:       req.Timeslots,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, pref)
	}
}

// NextSlotResponse is the preview of the next free slot
type NextSlotResponse struct {
	NextSlot time.Time `json:"next_slot"`
}

// NextSlot handles GET /users/{userID}/schedule-preferences/next-slot
func (h *PreferenceHandler) NextSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next, err := h.prefs.NextSlot(r.Context(), chi.URLParam(r, "userID"), h.now())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, NextSlotResponse{NextSlot: next})
	}
}

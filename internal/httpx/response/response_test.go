package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorBodies(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "plain error",
			write:      func(w http.ResponseWriter) { NotFound(w, "post not found") },
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"post not found"}`,
		},
		{
			name:       "coded error",
			write:      func(w http.ResponseWriter) { Unprocessable(w, "NO_SLOT", "no available timeslot") },
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"code":"NO_SLOT","error":"no available timeslot"}`,
		},
		{
			name:       "conflict",
			write:      func(w http.ResponseWriter) { Conflict(w, "already scheduled") },
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"already scheduled"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

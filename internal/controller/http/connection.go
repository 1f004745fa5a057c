package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/httpx/response"
)

// ConnectionLister defines the interface for listing a user's platform connections
type ConnectionLister interface {
	ListConnections(ctx context.Context, userID string) ([]entity.Connection, error)
}

// ConnectionHandler handles HTTP requests for platform connections
type ConnectionHandler struct {
	lister ConnectionLister
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(lister ConnectionLister) *ConnectionHandler {
	return &ConnectionHandler{lister: lister}
}

// RegisterRoutes registers connection routes
func (h *ConnectionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/connections", h.List())
}

// ConnectionInfo is a connection without its token
type ConnectionInfo struct {
	Platform          entity.Platform `json:"platform"`
	ExternalAccountID string          `json:"external_account_id"`
	Expired           bool            `json:"expired"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
}

// ListConnectionsResponse represents the response for listing connections
type ListConnectionsResponse struct {
	Connections []ConnectionInfo `json:"connections"`
}

// List handles GET /users/{userID}/connections
func (h *ConnectionHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connections, err := h.lister.ListConnections(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		now := time.Now()
		infos := make([]ConnectionInfo, 0, len(connections))
		for _, c := range connections {
			info := ConnectionInfo{
				Platform:          c.Platform,
				ExternalAccountID: c.ExternalAccountID,
				Expired:           c.Expired(now),
				ExpiresAt:         c.ExpiresAt,
			}
			infos = append(infos, info)
		}

		response.OK(w, ListConnectionsResponse{Connections: infos})
	}
}

package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/httpx/response"
)

// ScheduledPostReader defines read access to scheduled posts
type ScheduledPostReader interface {
	GetScheduledPost(ctx context.Context, id string) (*entity.ScheduledPost, error)
	ListScheduledPosts(ctx context.Context, in service.ListScheduledInput) (*service.ListScheduledOutput, error)
}

// ScheduledPostHandler handles HTTP requests for scheduled posts
type ScheduledPostHandler struct {
	reader ScheduledPostReader
}

// NewScheduledPostHandler creates a new scheduled post handler
func NewScheduledPostHandler(reader ScheduledPostReader) *ScheduledPostHandler {
	return &ScheduledPostHandler{reader: reader}
}

// RegisterRoutes registers scheduled post routes
func (h *ScheduledPostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/scheduled-posts", h.List())
	r.Get("/scheduled-posts/{id}", h.Get())
}

// ListScheduledPostsResponse represents the response for listing scheduled posts
type ListScheduledPostsResponse struct {
	ScheduledPosts []entity.ScheduledPost `json:"scheduled_posts"`
	Total          int64                  `json:"total"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
}

// List handles GET /scheduled-posts
func (h *ScheduledPostHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var status *entity.ScheduleStatus
		if s := q.Get("status"); s != "" {
			ss := entity.ScheduleStatus(s)
			if !ss.Valid() {
				response.BadRequest(w, entity.ErrInvalidStatus.Error())
				return
			}
			status = &ss
		}

		var platform *entity.Platform
		if p := q.Get("platform"); p != "" {
			pl := entity.Platform(p)
			if !pl.Valid() {
				response.BadRequest(w, entity.ErrInvalidPlatform.Error())
				return
			}
			platform = &pl
		}

		limit, offset, ok := parsePagination(w, r)
		if !ok {
			return
		}

		out, err := h.reader.ListScheduledPosts(r.Context(), service.ListScheduledInput{
			UserID:   q.Get("user_id"),
			PostID:   q.Get("post_id"),
			Status:   status,
			Platform: platform,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ListScheduledPostsResponse{
			ScheduledPosts: out.ScheduledPosts,
			Total:          out.Total,
			Limit:          limit,
			Offset:         offset,
		})
	}
}

// Get handles GET /scheduled-posts/{id}
func (h *ScheduledPostHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sp, err := h.reader.GetScheduledPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, sp)
	}
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/httpx/response"
)

// PostService defines post authoring and review operations
// Interface is defined by consumer (handler), not provider (service)
type PostService interface {
	CreatePost(ctx context.Context, in service.CreateInput) (*entity.Post, error)
	UpdatePost(ctx context.Context, in service.UpdateInput) (*entity.Post, error)
	GetPost(ctx context.Context, id string) (*entity.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, in service.ListInput) (*service.ListOutput, error)
	Submit(ctx context.Context, id string) (*entity.Post, error)
	Approve(ctx context.Context, id string) (*entity.Post, error)
	Reject(ctx context.Context, id string) (*entity.Post, error)
}

// SchedulingPolicy defines scheduling and publishing use cases
type SchedulingPolicy interface {
	Schedule(ctx context.Context, postID string, at time.Time) (*entity.Post, *entity.ScheduledPost, error)
	AutoSchedule(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error)
	Unschedule(ctx context.Context, postID string) (*entity.Post, error)
	PublishNow(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error)
	BulkAutoSchedule(ctx context.Context, in policy.BulkInput) (*policy.BulkOutput, error)
}

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	posts      PostService
	scheduling SchedulingPolicy
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts PostService, scheduling SchedulingPolicy) *PostHandler {
	return &PostHandler{posts: posts, scheduling: scheduling}
}

// RegisterRoutes registers post routes
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.Create())
		r.Get("/", h.List())
		r.Post("/projects/{projectID}/posts/auto-schedule", h.BulkAutoSchedule())

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get())
			r.Put("/", h.Update())
			r.Delete("/", h.Delete())
			r.Post("/submit", h.Submit())
			r.Post("/approve", h.Approve())
			r.Post("/reject", h.Reject())
			r.Post("/schedule", h.Schedule())
			r.Delete("/schedule", h.Unschedule())
			r.Post("/auto-schedule", h.AutoSchedule())
			r.Post("/publish", h.PublishNow())
		})
	})
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	Content   string `json:"content"`
	MediaURL  string `json:"media_url,omitempty"`
}

// Create handles POST /posts
func (h *PostHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		post, err := h.posts.CreatePost(r.Context(), service.CreateInput{
			ProjectID: req.ProjectID,
			UserID:    req.UserID,
			Platform:  entity.Platform(req.Platform),
			Content:   req.Content,
			MediaURL:  req.MediaURL,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.Created(w, post)
	}
}

// UpdatePostRequest represents the request body for updating a post
type UpdatePostRequest struct {
	Content  *string `json:"content,omitempty"`
	MediaURL *string `json:"media_url,omitempty"`
	Platform *string `json:"platform,omitempty"`
}

// Update handles PUT /posts/{id}
func (h *PostHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		in := service.UpdateInput{
			ID:       chi.URLParam(r, "id"),
			Content:  req.Content,
			MediaURL: req.MediaURL,
		}
		if req.Platform != nil {
			p := entity.Platform(*req.Platform)
			in.Platform = &p
		}

		post, err := h.posts.UpdatePost(r.Context(), in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, post)
	}
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, post)
	}
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.posts.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.NoContent(w)
	}
}

// ListPostsResponse represents the response for listing posts
type ListPostsResponse struct {
	Posts  []entity.Post `json:"posts"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// List handles GET /posts
func (h *PostHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var status *entity.PostStatus
		if s := q.Get("status"); s != "" {
			ps := entity.PostStatus(s)
			if !ps.Valid() {
				response.BadRequest(w, entity.ErrInvalidStatus.Error())
				return
			}
			status = &ps
		}

		limit, offset, ok := parsePagination(w, r)
		if !ok {
			return
		}

		out, err := h.posts.ListPosts(r.Context(), service.ListInput{
			ProjectID: q.Get("project_id"),
			UserID:    q.Get("user_id"),
			Status:    status,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ListPostsResponse{
			Posts:  out.Posts,
			Total:  out.Total,
			Limit:  limit,
			Offset: offset,
		})
	}
}

// Submit handles POST /posts/{id}/submit
func (h *PostHandler) Submit() http.HandlerFunc {
	return h.review(h.posts.Submit)
}

// Approve handles POST /posts/{id}/approve
func (h *PostHandler) Approve() http.HandlerFunc {
	return h.review(h.posts.Approve)
}

// Reject handles POST /posts/{id}/reject
func (h *PostHandler) Reject() http.HandlerFunc {
	return h.review(h.posts.Reject)
}

func (h *PostHandler) review(apply func(ctx context.Context, id string) (*entity.Post, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := apply(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, post)
	}
}

// ScheduleRequest represents the request body for scheduling a post
type ScheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"` // RFC3339 format
}

// ScheduleResponse is returned by the scheduling endpoints
type ScheduleResponse struct {
	Post          *entity.Post          `json:"post"`
	ScheduledPost *entity.ScheduledPost `json:"scheduled_post,omitempty"`
}

// Schedule handles POST /posts/{id}/schedule
func (h *PostHandler) Schedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			response.BadRequest(w, "invalid scheduled_at format, use RFC3339")
			return
		}

		post, sp, err := h.scheduling.Schedule(r.Context(), chi.URLParam(r, "id"), at)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ScheduleResponse{Post: post, ScheduledPost: sp})
	}
}

// Unschedule handles DELETE /posts/{id}/schedule
func (h *PostHandler) Unschedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.scheduling.Unschedule(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ScheduleResponse{Post: post})
	}
}

// AutoSchedule handles POST /posts/{id}/auto-schedule
func (h *PostHandler) AutoSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, sp, err := h.scheduling.AutoSchedule(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ScheduleResponse{Post: post, ScheduledPost: sp})
	}
}

// PublishNow handles POST /posts/{id}/publish
func (h *PostHandler) PublishNow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, sp, err := h.scheduling.PublishNow(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		response.OK(w, ScheduleResponse{Post: post, ScheduledPost: sp})
	}
}

// BulkAutoScheduleRequest represents the request body for bulk auto-scheduling
type BulkAutoScheduleRequest struct {
	Limit int `json:"limit,omitempty"`
}

// BulkMeta summarizes a bulk auto-scheduling run
type BulkMeta struct {
	Requested int                  `json:"requested"`
	Scheduled int                  `json:"scheduled"`
	Failed    int                  `json:"failed"`
	Failures  []policy.BulkFailure `json:"failures"`
}

// BulkAutoScheduleResponse is returned by the bulk auto-scheduling endpoint
type BulkAutoScheduleResponse struct {
	Scheduled []policy.BulkItem `json:"scheduled"`
	Meta      BulkMeta          `json:"meta"`
}

// BulkAutoSchedule handles POST /posts/projects/{projectID}/posts/auto-schedule
func (h *PostHandler) BulkAutoSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkAutoScheduleRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "invalid JSON")
				return
			}
		}
		if req.Limit < 0 {
			response.BadRequest(w, "limit must not be negative")
			return
		}

		out, err := h.scheduling.BulkAutoSchedule(r.Context(), policy.BulkInput{
			ProjectID: chi.URLParam(r, "projectID"),
			Limit:     req.Limit,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}

		scheduled := out.Scheduled
		if scheduled == nil {
			scheduled = []policy.BulkItem{}
		}
		failures := out.Failures
		if failures == nil {
			failures = []policy.BulkFailure{}
		}

		response.OK(w, BulkAutoScheduleResponse{
			Scheduled: scheduled,
			Meta: BulkMeta{
				Requested: out.Requested,
				Scheduled: len(scheduled),
				Failed:    len(failures),
				Failures:  failures,
			},
		})
	}
}

// parsePagination reads limit and offset query parameters, writing a 400 on bad input
func parsePagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()

	limit = 50
	if l := q.Get("limit"); l != "" {
		li, err := strconv.Atoi(l)
		if err != nil || li < 1 {
			response.BadRequest(w, "invalid limit")
			return 0, 0, false
		}
		if li > 200 {
			li = 200
		}
		limit = li
	}
	if o := q.Get("offset"); o != "" {
		oi, err := strconv.Atoi(o)
		if err != nil || oi < 0 {
			response.BadRequest(w, "invalid offset")
			return 0, 0, false
		}
		offset = oi
	}

	return limit, offset, true
}

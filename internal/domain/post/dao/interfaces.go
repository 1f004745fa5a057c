package dao

import (
	"context"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// PostFilter contains filters for listing posts
type PostFilter struct {
	ProjectID string
	UserID    string
	Status    *entity.PostStatus
}

// ScheduledPostFilter contains filters for listing scheduled posts
type ScheduledPostFilter struct {
	UserID   string
	PostID   string
	Status   *entity.ScheduleStatus
	Platform *entity.Platform
}

// ListOptions contains pagination options
type ListOptions struct {
	Limit  int
	Offset int
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	// Create inserts a new post
	Create(ctx context.Context, post *entity.Post) error

	// GetByID retrieves a post by its ID, nil if it does not exist
	GetByID(ctx context.Context, id string) (*entity.Post, error)

	// Update updates content and status fields of an existing post
	Update(ctx context.Context, post *entity.Post) error

	// Delete removes a post by ID
	Delete(ctx context.Context, id string) error

	// List retrieves posts with optional filtering and pagination
	List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error)

	// Count returns the total number of posts matching the filter
	Count(ctx context.Context, filter PostFilter) (int64, error)

	// ListSchedulable returns approved posts of a project without a schedule, oldest first
	ListSchedulable(ctx context.Context, projectID string, limit int) ([]entity.Post, error)
}

// ScheduledPostRepository defines the interface for scheduled post data access.
// Writes that touch both tables run in one transaction so the post mirror never drifts.
type ScheduledPostRepository interface {
	// Schedule stores the updated post and inserts its new scheduled post row.
	// Returns entity.ErrAlreadyScheduled when the post already holds an active row.
	Schedule(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error

	// Cancel stores a cancelled row together with the unscheduled post
	Cancel(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error

	// SaveAttempt stores the outcome of a publish attempt and, when given, the post mirror
	SaveAttempt(ctx context.Context, sp *entity.ScheduledPost, post *entity.Post) error

	// GetByID retrieves a scheduled post by its ID, nil if it does not exist
	GetByID(ctx context.Context, id string) (*entity.ScheduledPost, error)

	// GetActiveByPostID returns the pending or published row of a post, nil if none
	GetActiveByPostID(ctx context.Context, postID string) (*entity.ScheduledPost, error)

	// List retrieves scheduled posts with optional filtering and pagination
	List(ctx context.Context, filter ScheduledPostFilter, opts ListOptions) ([]entity.ScheduledPost, error)

	// Count returns the total number of scheduled posts matching the filter
	Count(ctx context.Context, filter ScheduledPostFilter) (int64, error)

	// ListDue returns pending rows with scheduled_time <= now, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error)

	// ListPendingTimes returns the scheduled times a user's pending rows hold at or after from
	ListPendingTimes(ctx context.Context, userID string, from time.Time) ([]time.Time, error)

	// Claim stamps last_attempt on a pending row unless another attempt holds it
	// within lease. Returns false when the row was not claimed.
	Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error)
}

// ConnectionRepository defines the interface for social connection data access
type ConnectionRepository interface {
	// Get retrieves the connection of a user on a platform, nil if none
	Get(ctx context.Context, userID string, platform entity.Platform) (*entity.Connection, error)

	// ListByUser returns all connections of a user
	ListByUser(ctx context.Context, userID string) ([]entity.Connection, error)
}

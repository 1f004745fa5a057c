package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service handles persistence-facing business logic for posts and scheduled posts
type Service struct {
	posts       dao.PostRepository
	scheduled   dao.ScheduledPostRepository
	connections dao.ConnectionRepository
}

// New creates a new post service
func New(posts dao.PostRepository, scheduled dao.ScheduledPostRepository, connections dao.ConnectionRepository) *Service {
	return &Service{
		posts:       posts,
		scheduled:   scheduled,
		connections: connections,
	}
}

// CreateInput represents input for creating a post
type CreateInput struct {
	ProjectID string
	UserID    string
	Platform  entity.Platform
	Content   string
	MediaURL  string
}

// CreatePost creates a new draft post
func (s *Service) CreatePost(ctx context.Context, in CreateInput) (*entity.Post, error) {
	now := time.Now()

	post := &entity.Post{
		ID:        uuid.New().String(),
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Platform:  in.Platform,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		Status:    entity.PostStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// UpdateInput represents input for updating a post
type UpdateInput struct {
	ID       string
	Content  *string
	MediaURL *string
	Platform *entity.Platform
}

// UpdatePost updates the content of a post that is not yet scheduled
func (s *Service) UpdatePost(ctx context.Context, in UpdateInput) (*entity.Post, error) {
	post, err := s.GetPost(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if !post.IsEditable() {
		return nil, entity.ErrPostNotEditable
	}

	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.MediaURL != nil {
		post.MediaURL = *in.MediaURL
	}
	if in.Platform != nil {
		post.Platform = *in.Platform
	}
	post.UpdatedAt = time.Now()

	if err := post.Validate(); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// GetPost retrieves a post by ID
func (s *Service) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrPostNotFound
	}
	return post, nil
}

// DeletePost deletes a post that is neither scheduled nor published
func (s *Service) DeletePost(ctx context.Context, id string) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}

	if !post.IsDeletable() {
		return entity.ErrPostNotDeletable
	}

	return s.posts.Delete(ctx, id)
}

// ListInput represents input for listing posts
type ListInput struct {
	ProjectID string
	UserID    string
	Status    *entity.PostStatus
	Limit     int
	Offset    int
}

// ListOutput represents output from listing posts
type ListOutput struct {
	Posts []entity.Post
	Total int64
}

// ListPosts retrieves posts with filtering
func (s *Service) ListPosts(ctx context.Context, in ListInput) (*ListOutput, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, entity.ErrInvalidStatus
	}

	filter := dao.PostFilter{
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Status:    in.Status,
	}

	posts, err := s.posts.List(ctx, filter, listOptions(in.Limit, in.Offset))
	if err != nil {
		return nil, err
	}

	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListOutput{Posts: posts, Total: total}, nil
}

// Submit sends a post to review
func (s *Service) Submit(ctx context.Context, id string) (*entity.Post, error) {
	return s.transition(ctx, id, (*entity.Post).Submit)
}

// Approve approves a post under review
func (s *Service) Approve(ctx context.Context, id string) (*entity.Post, error) {
	return s.transition(ctx, id, (*entity.Post).Approve)
}

// Reject rejects a post under review
func (s *Service) Reject(ctx context.Context, id string) (*entity.Post, error) {
	return s.transition(ctx, id, (*entity.Post).Reject)
}

func (s *Service) transition(ctx context.Context, id string, apply func(*entity.Post, time.Time) error) (*entity.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(post, time.Now()); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// ListSchedulable returns approved, unscheduled posts of a project in creation order
func (s *Service) ListSchedulable(ctx context.Context, projectID string, limit int) ([]entity.Post, error) {
	return s.posts.ListSchedulable(ctx, projectID, limit)
}

// GetScheduledPost retrieves a scheduled post by ID
func (s *Service) GetScheduledPost(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	sp, err := s.scheduled.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, entity.ErrScheduledPostNotFound
	}
	return sp, nil
}

// GetActiveSchedule returns the pending or published row of a post, nil if none
func (s *Service) GetActiveSchedule(ctx context.Context, postID string) (*entity.ScheduledPost, error) {
	return s.scheduled.GetActiveByPostID(ctx, postID)
}

// ListScheduledInput represents input for listing scheduled posts
type ListScheduledInput struct {
	UserID   string
	PostID   string
	Status   *entity.ScheduleStatus
	Platform *entity.Platform
	Limit    int
	Offset   int
}

// ListScheduledOutput represents output from listing scheduled posts
type ListScheduledOutput struct {
	ScheduledPosts []entity.ScheduledPost
	Total          int64
}

// ListScheduledPosts retrieves scheduled posts with filtering
func (s *Service) ListScheduledPosts(ctx context.Context, in ListScheduledInput) (*ListScheduledOutput, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, entity.ErrInvalidStatus
	}
	if in.Platform != nil && !in.Platform.Valid() {
		return nil, entity.ErrInvalidPlatform
	}

	filter := dao.ScheduledPostFilter{
		UserID:   in.UserID,
		PostID:   in.PostID,
		Status:   in.Status,
		Platform: in.Platform,
	}

	items, err := s.scheduled.List(ctx, filter, listOptions(in.Limit, in.Offset))
	if err != nil {
		return nil, err
	}

	total, err := s.scheduled.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListScheduledOutput{ScheduledPosts: items, Total: total}, nil
}

// SaveSchedule persists a new schedule and the post mirror together
func (s *Service) SaveSchedule(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	return s.scheduled.Schedule(ctx, post, sp)
}

// CancelSchedule persists a cancelled schedule and the post mirror together
func (s *Service) CancelSchedule(ctx context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	return s.scheduled.Cancel(ctx, post, sp)
}

// SaveAttempt persists the outcome of a publish attempt
func (s *Service) SaveAttempt(ctx context.Context, sp *entity.ScheduledPost, post *entity.Post) error {
	return s.scheduled.SaveAttempt(ctx, sp, post)
}

// ListDue returns pending rows due at now
func (s *Service) ListDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error) {
	return s.scheduled.ListDue(ctx, now, limit)
}

// PendingTimes returns the instants a user's pending rows hold from the given time on
func (s *Service) PendingTimes(ctx context.Context, userID string, from time.Time) ([]time.Time, error) {
	return s.scheduled.ListPendingTimes(ctx, userID, from)
}

// Claim takes the publishing lease on a row
func (s *Service) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	return s.scheduled.Claim(ctx, id, now, lease)
}

// GetConnection returns the connection of a user on a platform
func (s *Service) GetConnection(ctx context.Context, userID string, platform entity.Platform) (*entity.Connection, error) {
	return s.connections.Get(ctx, userID, platform)
}

// ListConnections returns the connections of a user without tokens
func (s *Service) ListConnections(ctx context.Context, userID string) ([]entity.Connection, error) {
	if userID == "" {
		return nil, entity.ErrEmptyUserID
	}
	return s.connections.ListByUser(ctx, userID)
}

// NewScheduledPostID returns an identifier for a new scheduled post row
func NewScheduledPostID() string {
	return uuid.New().String()
}

func listOptions(limit, offset int) dao.ListOptions {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return dao.ListOptions{Limit: limit, Offset: offset}
}

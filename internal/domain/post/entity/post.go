package entity

import (
	"time"
	"unicode/utf8"
)

// MaxContentLength is the largest post body accepted by any supported platform
const MaxContentLength = 3000

// Platform is the social network a post targets
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformX        Platform = "x"
)

// Valid reports whether the platform is supported
func (p Platform) Valid() bool {
	return p == PlatformLinkedIn || p == PlatformX
}

// PostStatus represents the review/publishing lifecycle of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPending   PostStatus = "pending"
	PostStatusApproved  PostStatus = "approved"
	PostStatusRejected  PostStatus = "rejected"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// Valid reports whether the status is known
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPending, PostStatusApproved, PostStatusRejected,
		PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// Post is a piece of generated content going through review and publishing
type Post struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	Platform  Platform   `json:"platform"`
	Content   string     `json:"content"`
	MediaURL  string     `json:"media_url,omitempty"`
	Status    PostStatus `json:"status"`

	// Mirror of the active scheduled post row
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	ScheduleStatus ScheduleStatus `json:"schedule_status,omitempty"`
	ScheduleError  string         `json:"schedule_error,omitempty"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields every post must carry
func (p *Post) Validate() error {
	if p.ProjectID == "" {
		return ErrEmptyProjectID
	}
	if p.UserID == "" {
		return ErrEmptyUserID
	}
	if !p.Platform.Valid() {
		return ErrInvalidPlatform
	}
	if p.Content == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(p.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// IsEditable returns true while the post has not been committed to a publish time
func (p *Post) IsEditable() bool {
	switch p.Status {
	case PostStatusDraft, PostStatusPending, PostStatusApproved, PostStatusRejected:
		return true
	}
	return false
}

// IsDeletable returns true if the post is neither scheduled nor published
func (p *Post) IsDeletable() bool {
	return p.Status != PostStatusScheduled && p.Status != PostStatusPublished
}

// CanSchedule returns true if the post may get a new scheduled post row
func (p *Post) CanSchedule() bool {
	return p.Status == PostStatusApproved || p.Status == PostStatusFailed
}

// Submit sends a draft (or a rejected post) to review
func (p *Post) Submit(now time.Time) error {
	if p.Status != PostStatusDraft && p.Status != PostStatusRejected {
		return ErrInvalidTransition
	}
	p.Status = PostStatusPending
	p.UpdatedAt = now
	return nil
}

// Approve accepts a post under review
func (p *Post) Approve(now time.Time) error {
	if p.Status != PostStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PostStatusApproved
	p.UpdatedAt = now
	return nil
}

// Reject sends a post under review back to its author
func (p *Post) Reject(now time.Time) error {
	if p.Status != PostStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PostStatusRejected
	p.UpdatedAt = now
	return nil
}

// MarkScheduled mirrors a freshly created scheduled post onto the post
func (p *Post) MarkScheduled(sp *ScheduledPost, now time.Time) {
	at := sp.ScheduledTime
	p.Status = PostStatusScheduled
	p.ScheduledAt = &at
	p.ScheduleStatus = sp.Status
	p.ScheduleError = ""
	p.UpdatedAt = now
}

// MarkUnscheduled returns a scheduled post to the approved pool
func (p *Post) MarkUnscheduled(now time.Time) {
	p.Status = PostStatusApproved
	p.ScheduledAt = nil
	p.ScheduleStatus = ScheduleStatusCancelled
	p.ScheduleError = ""
	p.UpdatedAt = now
}

// ApplyAttempt mirrors the outcome of a publish attempt onto the post
func (p *Post) ApplyAttempt(sp *ScheduledPost, now time.Time) {
	p.ScheduleStatus = sp.Status
	p.ScheduleError = sp.ErrorMessage
	p.UpdatedAt = now

	switch sp.Status {
	case ScheduleStatusPublished:
		p.Status = PostStatusPublished
		p.PublishedAt = sp.LastAttempt
	case ScheduleStatusFailed:
		p.Status = PostStatusFailed
	}
}

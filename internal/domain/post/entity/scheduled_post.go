package entity

import (
	"time"
)

// DefaultMaxRetries is the number of failed attempts after which a scheduled post is failed
const DefaultMaxRetries = 3

// ScheduleStatus represents the publishing state of a scheduled post
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusPublished ScheduleStatus = "published"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Valid reports whether the status is known
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPending, ScheduleStatusPublished, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status holds the post's single active schedule
func (s ScheduleStatus) IsActive() bool {
	return s == ScheduleStatusPending || s == ScheduleStatusPublished
}

// ScheduledPost is a post committed to publish at a specific instant on a specific platform
type ScheduledPost struct {
	ID             string         `json:"id"`
	PostID         string         `json:"post_id"`
	UserID         string         `json:"user_id"`
	Platform       Platform       `json:"platform"`
	Content        string         `json:"content"`
	MediaURL       string         `json:"media_url,omitempty"`
	ScheduledTime  time.Time      `json:"scheduled_time"`
	Status         ScheduleStatus `json:"status"`
	RetryCount     int            `json:"retry_count"`
	LastAttempt    *time.Time     `json:"last_attempt,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ExternalPostID string         `json:"external_post_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewScheduledPost snapshots the post content into a pending row
func NewScheduledPost(id string, post *Post, at, now time.Time) *ScheduledPost {
	return &ScheduledPost{
		ID:            id,
		PostID:        post.ID,
		UserID:        post.UserID,
		Platform:      post.Platform,
		Content:       post.Content,
		MediaURL:      post.MediaURL,
		ScheduledTime: at,
		Status:        ScheduleStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsDue reports whether the row should be picked up by the publisher at now
func (s *ScheduledPost) IsDue(now time.Time) bool {
	return s.Status == ScheduleStatusPending && !s.ScheduledTime.After(now)
}

// RecordSuccess marks the row published
func (s *ScheduledPost) RecordSuccess(externalID string, at time.Time) {
	s.Status = ScheduleStatusPublished
	s.ExternalPostID = externalID
	s.ErrorMessage = ""
	s.LastAttempt = &at
	s.UpdatedAt = at
}

// RecordFailure counts a failed attempt. The row stays pending until
// maxRetries attempts have failed, or fails at once for permanent errors.
func (s *ScheduledPost) RecordFailure(msg string, at time.Time, maxRetries int, permanent bool) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	s.RetryCount++
	s.ErrorMessage = msg
	s.LastAttempt = &at
	s.UpdatedAt = at

	if permanent || s.RetryCount >= maxRetries {
		s.Status = ScheduleStatusFailed
		return
	}
	s.Status = ScheduleStatusPending
}

// Cancel withdraws a pending row
func (s *ScheduledPost) Cancel(at time.Time) error {
	if s.Status != ScheduleStatusPending {
		return ErrNotScheduled
	}
	s.Status = ScheduleStatusCancelled
	s.UpdatedAt = at
	return nil
}

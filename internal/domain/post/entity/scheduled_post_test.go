package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var attemptAt = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func pendingRow(retries int) *ScheduledPost {
	return &ScheduledPost{ID: "sp1", Status: ScheduleStatusPending, RetryCount: retries, ScheduledTime: attemptAt}
}

func TestRecordFailure(t *testing.T) {
	cases := []struct {
		name       string
		retries    int
		permanent  bool
		wantStatus ScheduleStatus
		wantCount  int
	}{
		{"first failure stays pending", 0, false, ScheduleStatusPending, 1},
		{"second failure stays pending", 1, false, ScheduleStatusPending, 2},
		{"third failure is terminal", 2, false, ScheduleStatusFailed, 3},
		{"permanent failure is terminal at once", 0, true, ScheduleStatusFailed, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sp := pendingRow(tc.retries)
			sp.RecordFailure("boom", attemptAt, DefaultMaxRetries, tc.permanent)

			assert.Equal(t, tc.wantStatus, sp.Status)
			assert.Equal(t, tc.wantCount, sp.RetryCount)
			assert.Equal(t, "boom", sp.ErrorMessage)
			require.NotNil(t, sp.LastAttempt)
			assert.Equal(t, attemptAt, *sp.LastAttempt)
		})
	}
}

func TestRecordSuccess(t *testing.T) {
	sp := pendingRow(1)
	sp.ErrorMessage = "previous failure"

	sp.RecordSuccess("urn:li:share:1", attemptAt)

	assert.Equal(t, ScheduleStatusPublished, sp.Status)
	assert.Equal(t, "urn:li:share:1", sp.ExternalPostID)
	assert.Empty(t, sp.ErrorMessage)
	assert.Equal(t, 1, sp.RetryCount)
}

func TestIsDue(t *testing.T) {
	sp := pendingRow(0)
	assert.True(t, sp.IsDue(attemptAt))
	assert.False(t, sp.IsDue(attemptAt.Add(-time.Second)))

	sp.Status = ScheduleStatusPublished
	assert.False(t, sp.IsDue(attemptAt.Add(time.Hour)))
}

func TestCancel(t *testing.T) {
	sp := pendingRow(0)
	require.NoError(t, sp.Cancel(attemptAt))
	assert.Equal(t, ScheduleStatusCancelled, sp.Status)
	assert.ErrorIs(t, sp.Cancel(attemptAt), ErrNotScheduled)
}

func TestPostReviewTransitions(t *testing.T) {
	p := &Post{Status: PostStatusDraft}

	assert.ErrorIs(t, p.Approve(attemptAt), ErrInvalidTransition)
	require.NoError(t, p.Submit(attemptAt))
	require.NoError(t, p.Reject(attemptAt))
	require.NoError(t, p.Submit(attemptAt))
	require.NoError(t, p.Approve(attemptAt))
	assert.Equal(t, PostStatusApproved, p.Status)
	assert.True(t, p.CanSchedule())
	assert.ErrorIs(t, p.Submit(attemptAt), ErrInvalidTransition)
}

func TestPostMirrorsSchedule(t *testing.T) {
	p := &Post{ID: "p1", UserID: "u1", Platform: PlatformX, Content: "hi", Status: PostStatusApproved}
	sp := NewScheduledPost("sp1", p, attemptAt, attemptAt.Add(-time.Hour))

	p.MarkScheduled(sp, attemptAt)
	assert.Equal(t, PostStatusScheduled, p.Status)
	assert.Equal(t, ScheduleStatusPending, p.ScheduleStatus)
	require.NotNil(t, p.ScheduledAt)
	assert.Equal(t, attemptAt, *p.ScheduledAt)
	assert.False(t, p.IsDeletable())

	sp.RecordFailure("rate limited", attemptAt, DefaultMaxRetries, false)
	p.ApplyAttempt(sp, attemptAt)
	assert.Equal(t, PostStatusScheduled, p.Status)
	assert.Equal(t, "rate limited", p.ScheduleError)

	sp.RecordSuccess("123", attemptAt)
	p.ApplyAttempt(sp, attemptAt)
	assert.Equal(t, PostStatusPublished, p.Status)
	assert.Equal(t, ScheduleStatusPublished, p.ScheduleStatus)
	assert.NotNil(t, p.PublishedAt)
}

func TestPostValidate(t *testing.T) {
	valid := Post{ProjectID: "pr", UserID: "u", Platform: PlatformLinkedIn, Content: "hello"}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Platform = "myspace"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPlatform)

	bad = valid
	bad.Content = ""
	assert.ErrorIs(t, bad.Validate(), ErrEmptyContent)

	bad = valid
	long := make([]rune, MaxContentLength+1)
	for i := range long {
		long[i] = 'é'
	}
	bad.Content = string(long)
	assert.ErrorIs(t, bad.Validate(), ErrContentTooLong)
}

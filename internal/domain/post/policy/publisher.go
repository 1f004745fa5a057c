package policy

import (
	"context"
	"errors"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// Attempt outcomes, also used as metric labels
const (
	OutcomePublished = "published"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// CycleResult summarizes one publisher run
type CycleResult struct {
	Selected  int `json:"selected"`
	Published int `json:"published"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// ProcessDue publishes every pending scheduled post whose time has come.
// Rows are handled one by one with PublishDelay between consecutive publishes;
// a row that errors is logged and the cycle moves on.
func (p *Policy) ProcessDue(ctx context.Context) (*CycleResult, error) {
	started := time.Now()
	defer func() {
		p.metrics.ObservePublishCycle(time.Since(started))
	}()

	due, err := p.svc.ListDue(ctx, p.opts.Now(), p.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	res := &CycleResult{Selected: len(due)}
	if len(due) == 0 {
		return res, nil
	}

	p.logger.Debug("processing due scheduled posts", "count", len(due))

	published := false
	for i := range due {
		sp := &due[i]

		if published {
			if err := p.opts.Sleep(ctx, p.opts.PublishDelay); err != nil {
				return res, err
			}
		}

		out, err := p.attempt(ctx, sp)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Errors++
			published = true
			p.logger.Error("failed to process scheduled post",
				"scheduled_post_id", sp.ID,
				"error", err,
			)
			continue
		}

		switch out.outcome {
		case OutcomePublished:
			res.Published++
		case OutcomeRetry:
			res.Retrying++
		case OutcomeFailed:
			res.Failed++
		case OutcomeSkipped:
			res.Skipped++
		}
		published = out.outcome != OutcomeSkipped
	}

	p.logger.Info("publisher cycle finished",
		"selected", res.Selected,
		"published", res.Published,
		"retrying", res.Retrying,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"errors", res.Errors,
	)

	return res, nil
}

// PublishScheduledPost attempts a single scheduled post if it is still pending and due.
// Used by the exact-time queue worker.
func (p *Policy) PublishScheduledPost(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	sp, err := p.svc.GetScheduledPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if !sp.IsDue(p.opts.Now()) {
		return sp, nil
	}

	if _, err := p.attempt(ctx, sp); err != nil {
		return nil, err
	}

	return sp, nil
}

type attemptResult struct {
	outcome string
	post    *entity.Post
}

// attempt claims, publishes and records one scheduled post. sp is updated in place.
func (p *Policy) attempt(ctx context.Context, sp *entity.ScheduledPost) (*attemptResult, error) {
	claimed, err := p.svc.Claim(ctx, sp.ID, p.opts.Now(), p.opts.ClaimLease)
	if err != nil {
		return nil, err
	}
	if !claimed {
		p.logger.Debug("scheduled post held by another attempt", "scheduled_post_id", sp.ID)
		return &attemptResult{outcome: OutcomeSkipped}, nil
	}

	post, err := p.svc.GetPost(ctx, sp.PostID)
	if err != nil && !errors.Is(err, entity.ErrPostNotFound) {
		return nil, err
	}

	externalID, pubErr := p.dispatch(ctx, sp)
	if pubErr != nil && ctx.Err() != nil {
		// Leave the row to the lease; it is retried once the lease expires
		return nil, ctx.Err()
	}

	at := p.opts.Now()
	if pubErr == nil {
		sp.RecordSuccess(externalID, at)
	} else {
		sp.RecordFailure(pubErr.Error(), at, p.opts.MaxRetries, !IsRetryable(pubErr))
	}
	if post != nil {
		post.ApplyAttempt(sp, at)
	}

	if err := p.svc.SaveAttempt(ctx, sp, post); err != nil {
		if pubErr == nil {
			// The platform accepted the post; keep the external id for reconciliation
			p.logger.Error("scheduled post published but outcome not saved",
				"scheduled_post_id", sp.ID,
				"post_id", sp.PostID,
				"platform", sp.Platform,
				"external_post_id", externalID,
				"error", err,
			)
		}
		return nil, err
	}

	outcome := outcomeOf(sp)
	p.metrics.PublishAttempt(string(sp.Platform), outcome)

	attrs := []any{
		"scheduled_post_id", sp.ID,
		"post_id", sp.PostID,
		"platform", sp.Platform,
		"retry_count", sp.RetryCount,
		"status", sp.Status,
	}
	switch outcome {
	case OutcomePublished:
		p.logger.Info("scheduled post published", append(attrs, "external_post_id", sp.ExternalPostID)...)
		p.emit(ctx, EventScheduledPostPublished, sp)
	case OutcomeFailed:
		p.logger.Error("scheduled post failed", append(attrs, "error", pubErr)...)
		p.emit(ctx, EventScheduledPostFailed, sp)
	default:
		p.logger.Warn("publish attempt failed, will retry", append(attrs, "error", pubErr)...)
	}

	return &attemptResult{outcome: outcome, post: post}, nil
}

func (p *Policy) dispatch(ctx context.Context, sp *entity.ScheduledPost) (string, error) {
	pub, ok := p.publishers[sp.Platform]
	if !ok {
		return "", Permanent(entity.ErrUnsupportedPlatform)
	}

	conn, err := p.svc.GetConnection(ctx, sp.UserID, sp.Platform)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", Permanent(entity.ErrNoConnection)
	}
	if conn.Expired(p.opts.Now()) {
		return "", Permanent(entity.ErrConnectionExpired)
	}

	out, err := pub.Publish(ctx, PublishInput{
		AccountID:   conn.ExternalAccountID,
		AccessToken: conn.AccessToken,
		Content:     sp.Content,
		MediaURL:    sp.MediaURL,
	})
	if err != nil {
		return "", err
	}

	return out.ExternalPostID, nil
}

func outcomeOf(sp *entity.ScheduledPost) string {
	switch sp.Status {
	case entity.ScheduleStatusPublished:
		return OutcomePublished
	case entity.ScheduleStatusFailed:
		return OutcomeFailed
	default:
		return OutcomeRetry
	}
}

// IsRetryable reports whether a publish error may succeed on a later attempt.
// Errors that do not classify themselves are treated as transient.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Retryable() bool { return false }

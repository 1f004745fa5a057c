package policy

import (
	"context"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// BulkInput represents input for bulk auto-scheduling a project
type BulkInput struct {
	ProjectID string
	Limit     int
}

// BulkItem is one successful assignment
type BulkItem struct {
	Post          *entity.Post          `json:"post"`
	ScheduledPost *entity.ScheduledPost `json:"scheduled_post"`
}

// BulkFailure describes a post that could not be scheduled
type BulkFailure struct {
	PostID  string `json:"post_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkOutput represents output from bulk auto-scheduling
type BulkOutput struct {
	Requested int
	Scheduled []BulkItem
	Failures  []BulkFailure
}

// BulkAutoSchedule assigns the project's approved, unscheduled posts to consecutive
// free timeslots in creation order. After each assignment the owner's cursor moves
// to the assigned instant plus BulkBuffer. The run stops at the first selector
// failure; a post that fails to persist is recorded and skipped. Assignments made
// before a failure are kept.
func (p *Policy) BulkAutoSchedule(ctx context.Context, in BulkInput) (*BulkOutput, error) {
	if in.ProjectID == "" {
		return nil, entity.ErrEmptyProjectID
	}

	limit := in.Limit
	if limit <= 0 {
		limit = p.opts.BulkDefaultLimit
	}
	if limit > p.opts.BulkMaxLimit {
		limit = p.opts.BulkMaxLimit
	}

	posts, err := p.svc.ListSchedulable(ctx, in.ProjectID, limit)
	if err != nil {
		return nil, err
	}

	out := &BulkOutput{
		Requested: len(posts),
		Scheduled: []BulkItem{},
		Failures:  []BulkFailure{},
	}

	now := p.opts.Now()
	cursors := make(map[string]*cursor)

	for i := range posts {
		post := &posts[i]

		cur, ok := cursors[post.UserID]
		if !ok {
			cur, err = p.newCursor(ctx, post.UserID, now)
			if err != nil {
				out.Failures = append(out.Failures, bulkFailure(post.ID, err))
				if isSelectorFailure(err) {
					break
				}
				continue
			}
			cursors[post.UserID] = cur
		}

		at, err := cur.plan.Next(cur.next, cur.taken.Has)
		if err != nil {
			out.Failures = append(out.Failures, bulkFailure(post.ID, err))
			break
		}

		sp, err := p.commit(ctx, post, at, now, true)
		if err != nil {
			p.logger.Warn("failed to persist bulk assignment",
				"post_id", post.ID,
				"scheduled_time", at,
				"error", err,
			)
			out.Failures = append(out.Failures, bulkFailure(post.ID, err))
			continue
		}

		cur.taken.Add(at)
		cur.next = at.Add(p.opts.BulkBuffer)
		out.Scheduled = append(out.Scheduled, BulkItem{Post: post, ScheduledPost: sp})
	}

	p.metrics.PostsScheduled(ModeBulk, len(out.Scheduled))
	p.logger.Info("bulk auto-schedule finished",
		"project_id", in.ProjectID,
		"requested", out.Requested,
		"scheduled", len(out.Scheduled),
		"failed", len(out.Failures),
	)

	return out, nil
}

func bulkFailure(postID string, err error) BulkFailure {
	return BulkFailure{
		PostID:  postID,
		Code:    ErrorCode(err),
		Message: err.Error(),
	}
}

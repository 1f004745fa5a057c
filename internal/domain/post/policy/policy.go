package policy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/service"
	slotentity "github.com/vadim/postpilot/internal/domain/slot/entity"
	"github.com/vadim/postpilot/internal/domain/slot/selector"
	slotservice "github.com/vadim/postpilot/internal/domain/slot/service"
)

// Machine-readable failure codes surfaced by scheduling use cases
const (
	CodeNoPreferences  = "NO_PREFERENCES"
	CodeNoSlot         = "NO_SLOT"
	CodeScheduleFailed = "SCHEDULE_FAILED"
)

// Event types emitted by the policy
const (
	EventPostScheduled          = "post.scheduled"
	EventScheduledPostPublished = "scheduled_post.published"
	EventScheduledPostFailed    = "scheduled_post.failed"
)

// Scheduling modes used as metric labels
const (
	ModeManual    = "manual"
	ModeAuto      = "auto"
	ModeBulk      = "bulk"
	ModeImmediate = "immediate"
)

// SlotPlanner resolves a user's timeslot preference
type SlotPlanner interface {
	Plan(ctx context.Context, userID string) (*slotservice.Plan, error)
}

// Publisher publishes content to one platform.
// This interface is defined here (consumer) not in the upstream packages (providers).
type Publisher interface {
	Publish(ctx context.Context, in PublishInput) (*PublishOutput, error)
}

// PublishInput represents input for publishing
type PublishInput struct {
	AccountID   string
	AccessToken string
	Content     string
	MediaURL    string
}

// PublishOutput represents output from publishing
type PublishOutput struct {
	ExternalPostID string
}

// EventPublisher broadcasts domain events. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Enqueuer schedules an exact-time publish task for a scheduled post. Optional.
type Enqueuer interface {
	EnqueuePublish(ctx context.Context, scheduledPostID string, at time.Time) error
}

// Metrics records scheduling and publishing counters. Optional.
type Metrics interface {
	PublishAttempt(platform, outcome string)
	PostsScheduled(mode string, n int)
	ObservePublishCycle(d time.Duration)
}

// Options holds tunables of the scheduling and publishing use cases
type Options struct {
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	// Sleep waits between publishes and must return early when ctx is done
	Sleep func(ctx context.Context, d time.Duration) error

	MaxRetries   int
	PublishDelay time.Duration
	ClaimLease   time.Duration
	BatchSize    int

	BulkBuffer       time.Duration
	BulkDefaultLimit int
	BulkMaxLimit     int
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Now:              time.Now,
		Sleep:            sleepContext,
		MaxRetries:       entity.DefaultMaxRetries,
		PublishDelay:     2 * time.Second,
		ClaimLease:       2 * time.Minute,
		BatchSize:        100,
		BulkBuffer:       5 * time.Minute,
		BulkDefaultLimit: 10,
		BulkMaxLimit:     50,
	}
}

// Option configures optional collaborators of the policy
type Option func(*Policy)

// WithEvents sets the event publisher
func WithEvents(e EventPublisher) Option {
	return func(p *Policy) {
		p.events = e
	}
}

// WithEnqueuer sets the exact-time task queue
func WithEnqueuer(q Enqueuer) Option {
	return func(p *Policy) {
		p.queue = q
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(p *Policy) {
		p.metrics = m
	}
}

// Policy orchestrates scheduling and publishing use-cases
type Policy struct {
	svc        *service.Service
	planner    SlotPlanner
	publishers map[entity.Platform]Publisher
	events     EventPublisher
	queue      Enqueuer
	metrics    Metrics
	logger     *slog.Logger
	opts       Options
}

// New creates a new post policy. Zero option values fall back to DefaultOptions.
func New(
	svc *service.Service,
	planner SlotPlanner,
	publishers map[entity.Platform]Publisher,
	logger *slog.Logger,
	opts Options,
	extra ...Option,
) *Policy {
	def := DefaultOptions()
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.PublishDelay <= 0 {
		opts.PublishDelay = def.PublishDelay
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = def.ClaimLease
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.BulkBuffer <= 0 {
		opts.BulkBuffer = def.BulkBuffer
	}
	if opts.BulkDefaultLimit <= 0 {
		opts.BulkDefaultLimit = def.BulkDefaultLimit
	}
	if opts.BulkMaxLimit <= 0 {
		opts.BulkMaxLimit = def.BulkMaxLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Policy{
		svc:        svc,
		planner:    planner,
		publishers: publishers,
		metrics:    noopMetrics{},
		logger:     logger,
		opts:       opts,
	}
	for _, o := range extra {
		o(p)
	}

	return p
}

// Schedule schedules a post for a specific instant
func (p *Policy) Schedule(ctx context.Context, postID string, at time.Time) (*entity.Post, *entity.ScheduledPost, error) {
	now := p.opts.Now()
	if !at.After(now) {
		return nil, nil, entity.ErrScheduledTimeInPast
	}

	post, err := p.schedulablePost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	sp, err := p.commit(ctx, post, at, now, true)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.PostsScheduled(ModeManual, 1)

	return post, sp, nil
}

// AutoSchedule schedules a post at its owner's next free preferred timeslot
func (p *Policy) AutoSchedule(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error) {
	post, err := p.schedulablePost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	now := p.opts.Now()
	cur, err := p.newCursor(ctx, post.UserID, now)
	if err != nil {
		return nil, nil, err
	}

	at, err := cur.plan.Next(cur.next, cur.taken.Has)
	if err != nil {
		return nil, nil, err
	}

	sp, err := p.commit(ctx, post, at, now, true)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.PostsScheduled(ModeAuto, 1)

	return post, sp, nil
}

// Unschedule cancels the pending schedule of a post and returns it to the approved pool
func (p *Policy) Unschedule(ctx context.Context, postID string) (*entity.Post, error) {
	post, err := p.svc.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	sp, err := p.svc.GetActiveSchedule(ctx, postID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, entity.ErrNotScheduled
	}

	now := p.opts.Now()
	if err := sp.Cancel(now); err != nil {
		return nil, err
	}
	post.MarkUnscheduled(now)

	if err := p.svc.CancelSchedule(ctx, post, sp); err != nil {
		return nil, err
	}

	return post, nil
}

// PublishNow publishes a post immediately, reusing its pending schedule if it has one
func (p *Policy) PublishNow(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error) {
	post, err := p.svc.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	sp, err := p.svc.GetActiveSchedule(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	if sp != nil && sp.Status == entity.ScheduleStatusPublished {
		return post, sp, nil // Already published
	}

	if sp == nil {
		if !post.CanSchedule() {
			return nil, nil, entity.ErrPostNotSchedulable
		}
		now := p.opts.Now()
		sp, err = p.commit(ctx, post, now, now, false)
		if err != nil {
			return nil, nil, err
		}
		p.metrics.PostsScheduled(ModeImmediate, 1)
	}

	res, err := p.attempt(ctx, sp)
	if err != nil {
		return nil, nil, err
	}
	if res.post != nil {
		post = res.post
	}

	return post, sp, nil
}

// ErrorCode maps a scheduling error to its machine-readable code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, slotentity.ErrNoPreferences):
		return CodeNoPreferences
	case errors.Is(err, slotentity.ErrNoSlot):
		return CodeNoSlot
	default:
		return CodeScheduleFailed
	}
}

func isSelectorFailure(err error) bool {
	return errors.Is(err, slotentity.ErrNoPreferences) || errors.Is(err, slotentity.ErrNoSlot)
}

func (p *Policy) schedulablePost(ctx context.Context, postID string) (*entity.Post, error) {
	post, err := p.svc.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	switch {
	case post.Status == entity.PostStatusScheduled || post.Status == entity.PostStatusPublished:
		return nil, entity.ErrAlreadyScheduled
	case !post.CanSchedule():
		return nil, entity.ErrPostNotSchedulable
	}

	return post, nil
}

// commit creates the scheduled post row and mirrors it onto the post
func (p *Policy) commit(ctx context.Context, post *entity.Post, at, now time.Time, enqueue bool) (*entity.ScheduledPost, error) {
	sp := entity.NewScheduledPost(service.NewScheduledPostID(), post, at, now)
	post.MarkScheduled(sp, now)

	if err := p.svc.SaveSchedule(ctx, post, sp); err != nil {
		return nil, err
	}

	if enqueue && p.queue != nil {
		if err := p.queue.EnqueuePublish(ctx, sp.ID, sp.ScheduledTime); err != nil {
			p.logger.Warn("failed to enqueue publish task, poller will pick it up",
				"scheduled_post_id", sp.ID,
				"error", err,
			)
		}
	}
	p.emit(ctx, EventPostScheduled, sp)

	return sp, nil
}

// cursor tracks the next candidate instant and the taken instants of one user
type cursor struct {
	plan  *slotservice.Plan
	next  time.Time
	taken selector.TakenSet
}

func (p *Policy) newCursor(ctx context.Context, userID string, now time.Time) (*cursor, error) {
	plan, err := p.planner.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}

	times, err := p.svc.PendingTimes(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	return &cursor{
		plan:  plan,
		next:  plan.Earliest(now),
		taken: selector.NewTakenSet(times...),
	}, nil
}

func (p *Policy) emit(ctx context.Context, eventType string, payload any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, eventType, payload); err != nil {
		p.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noopMetrics struct{}

func (noopMetrics) PublishAttempt(string, string)     {}
func (noopMetrics) PostsScheduled(string, int)        {}
func (noopMetrics) ObservePublishCycle(time.Duration) {}

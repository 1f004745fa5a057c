package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/vadim/postpilot/internal/domain/post/policy"
)

// DefaultSpec triggers a publisher cycle every minute
const DefaultSpec = "@every 1m"

var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// DueProcessor publishes scheduled posts whose time has come
type DueProcessor interface {
	ProcessDue(ctx context.Context) (*policy.CycleResult, error)
}

// Config holds scheduler settings
type Config struct {
	// Spec is a cron expression or descriptor such as "@every 30s"
	Spec string

	// RunOnStart triggers a cycle immediately on Start
	RunOnStart bool
}

// Scheduler triggers publisher cycles on a cron schedule.
// Overlapping cycles are skipped rather than queued.
type Scheduler struct {
	processor DueProcessor
	schedule  cron.Schedule
	cfg       Config
	logger    *slog.Logger
	cron      *cron.Cron
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New creates a new scheduler
func New(processor DueProcessor, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}

	schedule, err := specParser.Parse(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("parsing publisher schedule %q: %w", cfg.Spec, err)
	}

	return &Scheduler{
		processor: processor,
		schedule:  schedule,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	clog := NewCronLogger(s.logger)
	s.cron = cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	id := s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.process(runCtx) }))
	s.cron.Start()

	s.logger.Info("publication scheduler started", "spec", s.cfg.Spec)

	if s.cfg.RunOnStart {
		// The wrapped job carries SkipIfStillRunning, so this cannot overlap a tick
		job := s.cron.Entry(id).WrappedJob
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			job.Run()
		}()
	}
}

// Stop stops the scheduler and waits for a running cycle to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	done := c.Stop()
	cancel()
	<-done.Done()
	s.wg.Wait()

	s.logger.Info("publication scheduler stopped")
}

// process runs one publisher cycle
func (s *Scheduler) process(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.logger.Debug("processing due scheduled posts")

	if _, err := s.processor.ProcessDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("failed to process due scheduled posts", "error", err)
	}
}

// CronLogger adapts slog to the cron.Logger interface
type CronLogger struct {
	logger *slog.Logger
}

// NewCronLogger creates a cron logger writing to logger
func NewCronLogger(logger *slog.Logger) *CronLogger {
	return &CronLogger{logger: logger.With("component", "cron")}
}

// Info logs routine cron messages at debug level
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error logs cron errors, including recovered panics
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

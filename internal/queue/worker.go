package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// ScheduledPostPublisher publishes a single scheduled post if it is still due
type ScheduledPostPublisher interface {
	PublishScheduledPost(ctx context.Context, id string) (*entity.ScheduledPost, error)
}

// Worker handles publish tasks
type Worker struct {
	publisher ScheduledPostPublisher
	logger    *slog.Logger
}

// NewWorker creates a new worker
func NewWorker(publisher ScheduledPostPublisher, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, logger: logger}
}

// RegisterHandlers registers task handlers on mux
func (w *Worker) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublish, w.HandlePublishTask)
}

// HandlePublishTask publishes the scheduled post named by the task.
// Retries are left to the publisher cycle, so the task itself is never retried.
func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding task payload: %v: %w", err, asynq.SkipRetry)
	}

	sp, err := w.publisher.PublishScheduledPost(ctx, payload.ScheduledPostID)
	if errors.Is(err, entity.ErrScheduledPostNotFound) {
		w.logger.Warn("publish task for unknown scheduled post", "scheduled_post_id", payload.ScheduledPostID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("publishing scheduled post %s: %v: %w", payload.ScheduledPostID, err, asynq.SkipRetry)
	}

	w.logger.Debug("publish task handled",
		"scheduled_post_id", sp.ID,
		"status", sp.Status,
		"retry_count", sp.RetryCount,
	)
	return nil
}

// NewServer creates an asynq server consuming the publish queue
func NewServer(redis asynq.RedisClientOpt, concurrency int, logger *slog.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      &asynqLogger{logger: logger.With("component", "asynq")},
	})
}

// asynqLogger adapts slog to the asynq.Logger interface
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypePublish publishes one scheduled post at its scheduled time
const TaskTypePublish = "scheduled_post:publish"

// QueueName is the asynq queue publish tasks are placed on
const QueueName = "publish"

// PublishPayload is the payload of a TaskTypePublish task
type PublishPayload struct {
	ScheduledPostID string `json:"scheduled_post_id"`
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues publish tasks
type Client struct {
	client taskEnqueuer
}

// NewClient creates a queue client over an asynq client
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// EnqueuePublish schedules a publish task for the scheduled post at at.
// The scheduled post ID is the task ID, so repeated calls are no-ops.
func (c *Client) EnqueuePublish(ctx context.Context, scheduledPostID string, at time.Time) error {
	payload, err := json.Marshal(PublishPayload{ScheduledPostID: scheduledPostID})
	if err != nil {
		return fmt.Errorf("encoding task payload: %w", err)
	}

	task := asynq.NewTask(TaskTypePublish, payload)

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(scheduledPostID),
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueuing publish task: %w", err)
	}

	return nil
}

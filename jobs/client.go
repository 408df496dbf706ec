package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues ledger jobs on demand.
type Client struct {
	client *asynq.Client
}

// NewClient opens an asynq client against redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueGLIntegrity queues an integrity check. Duplicate requests within a
// minute collapse into one task.
func (c *Client) EnqueueGLIntegrity(ctx context.Context, payload GLIntegrityPayload) (*asynq.TaskInfo, error) {
	task, err := NewGLIntegrityTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(time.Minute))
}

// EnqueueReportWarmup queues a report cache rebuild.
func (c *Client) EnqueueReportWarmup(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewReportWarmupTask(reason)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

func (c *Client) Close() error {
	return c.client.Close()
}

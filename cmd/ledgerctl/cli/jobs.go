package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// Job names accepted by "jobs trigger".
const (
	JobGLIntegrity  = "gl-integrity"
	JobReportWarmup = "report-warmup"
)

// JobsCLI wraps manual management helpers for the ledger queue.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the helpers against redisAddr.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: REDIS_ADDR not set")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// TriggerOptions tunes the payload of a manually triggered job.
type TriggerOptions struct {
	FailOnDrift bool
	Reason      string
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts TriggerOptions) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case JobGLIntegrity:
		return c.client.EnqueueGLIntegrity(ctx, jobs.GLIntegrityPayload{FailOnDrift: opts.FailOnDrift})
	case JobReportWarmup:
		reason := opts.Reason
		if reason == "" {
			reason = "manual"
		}
		return c.client.EnqueueReportWarmup(ctx, reason)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the metrics of the ledger queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func validJob(name string) error {
	switch name {
	case JobGLIntegrity, JobReportWarmup:
		return nil
	}
	return fmt.Errorf("jobs cli: unsupported job %s", name)
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var opts TriggerOptions
	trigger := &cobra.Command{
		Use:       "trigger <gl-integrity|report-warmup>",
		Short:     "Enqueue a job for the worker",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{JobGLIntegrity, JobReportWarmup},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validJob(args[0]); err != nil {
				return err
			}
			c, err := NewJobsCLI(os.Getenv("REDIS_ADDR"))
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.Trigger(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	trigger.Flags().BoolVar(&opts.FailOnDrift, "fail-on-drift", false, "mark the integrity task failed when drift is found")
	trigger.Flags().StringVar(&opts.Reason, "reason", "", "reason recorded with a report warmup")

	queue := &cobra.Command{
		Use:   "queue",
		Short: "Show queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewJobsCLI(os.Getenv("REDIS_ADDR"))
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueue()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.AddCommand(trigger, queue)
	return cmd
}

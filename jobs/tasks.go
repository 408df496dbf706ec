package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity replays the journal against stored balances.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskReportWarmup rebuilds cached financial reports.
	TaskReportWarmup = "ledger:report_warmup"
)

// GLIntegrityPayload configures an integrity run.
type GLIntegrityPayload struct {
	// FailOnDrift makes the task fail, and so retry, when drift is found.
	FailOnDrift bool `json:"fail_on_drift"`
}

// ReportWarmupPayload names the trigger of a warmup for logging.
type ReportWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewGLIntegrityTask constructs an integrity check task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

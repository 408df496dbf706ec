package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// ErrDrift is returned by a FailOnDrift run that found drifting accounts.
var ErrDrift = errors.New("gl integrity: balances drifted from journal")

// Reconciler replays the journal against stored balances.
type Reconciler interface {
	Reconcile(ctx context.Context) (journals.ReconcileReport, error)
}

// GLIntegrityJob checks that every balance matches its journal history.
type GLIntegrityJob struct {
	Ledger  Reconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob wires dependencies for the integrity handler.
func NewGLIntegrityJob(ledger Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle processes TaskGLIntegrity tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	report, err := j.Run(ctx)
	if err != nil {
		return err
	}
	if payload.FailOnDrift && !report.Balanced() {
		return fmt.Errorf("%w: %d accounts", ErrDrift, len(report.Drifts))
	}
	return nil
}

// Run executes one integrity check and records its outcome.
func (j *GLIntegrityJob) Run(ctx context.Context) (report journals.ReconcileReport, err error) {
	tracker := j.Metrics.Track("gl_integrity")
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	report, err = j.Ledger.Reconcile(ctx)
	if err != nil {
		logger.Error("gl integrity check", slog.Any("error", err))
		return journals.ReconcileReport{}, err
	}
	j.Metrics.SetDrift(len(report.Drifts))
	for _, d := range report.Drifts {
		logger.Error("account drift",
			slog.String("account", d.Code),
			slog.String("expected", d.Expected.StringFixed(2)),
			slog.String("actual", d.Actual.StringFixed(2)))
	}
	logger.Info("gl integrity check executed",
		slog.String("job", "gl_integrity"),
		slog.Int("entries", report.Entries),
		slog.Int("accounts", report.Accounts),
		slog.Int("drifts", len(report.Drifts)))
	return report, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

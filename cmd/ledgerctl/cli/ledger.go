package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

// ErrDrift is returned by reconcile when balances disagree with the journal.
var ErrDrift = errors.New("ledger drift detected")

func openLedger(ctx context.Context) (*app.Ledger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.BuildLedger(ctx, app.LedgerParams{Config: cfg, Logger: logger})
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay the journal and compare it with stored balances",
		Example: `  # Check the production ledger
  LEDGER_STORE=postgres PG_DSN=postgres://... ledgerctl reconcile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer ledger.Close()
			report, err := ledger.Journals.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Balanced() {
				return fmt.Errorf("%w: %d account(s)", ErrDrift, len(report.Drifts))
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "report <trial-balance|profit-loss|balance-sheet|tax-summary>",
		Short:     "Print a financial report as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"trial-balance", "profit-loss", "balance-sheet", "tax-summary"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer ledger.Close()
			report, err := ledger.Reports.Build(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

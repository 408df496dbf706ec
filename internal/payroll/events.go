package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

// PayRunPaidEvent is raised when an approved pay run is disbursed.
type PayRunPaidEvent struct {
	PayRunID int64
	Period   string
	PayDate  time.Time
	Summary  Summary
}

// RemittanceEvent is raised when statutory deductions are paid out.
type RemittanceEvent struct {
	Reference  string
	Period     string
	PaidAt     time.Time
	Allocation Allocation
}

// IntegrationHandler receives payroll events for ledger integration.
type IntegrationHandler interface {
	HandlePayRunPaid(ctx context.Context, evt PayRunPaidEvent) (journals.JournalEntry, error)
	HandleRemittance(ctx context.Context, evt RemittanceEvent) (journals.JournalEntry, error)
	PendingRemittance(ctx context.Context) (Allocation, error)
	RevertPosting(ctx context.Context, entryID uuid.UUID, reason string) error
}

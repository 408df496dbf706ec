package ar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

// InvoiceSentEvent carries what the ledger needs to recognise revenue.
type InvoiceSentEvent struct {
	InvoiceID    int64
	Number       string
	CustomerName string
	Subtotal     decimal.Decimal
	SentAt       time.Time
}

// InvoicePaidEvent carries what the ledger needs to record a payment.
type InvoicePaidEvent struct {
	InvoiceID    int64
	Number       string
	CustomerName string
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	PaidAt       time.Time
}

// IntegrationHandler receives AR events for ledger integration.
type IntegrationHandler interface {
	HandleInvoiceSent(ctx context.Context, evt InvoiceSentEvent) (journals.JournalEntry, error)
	HandleInvoicePaid(ctx context.Context, evt InvoicePaidEvent) (journals.JournalEntry, error)
	RevertPosting(ctx context.Context, entryID uuid.UUID, reason string) error
}

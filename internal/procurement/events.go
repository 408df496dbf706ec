package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
)

// GoodsReceivedEvent captures details required to post a receipt to the ledger.
type GoodsReceivedEvent struct {
	OrderID      int64
	Number       string
	SupplierName string
	ReceivedAt   time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// VendorPaymentEvent settles part of the accounts payable balance in cash.
type VendorPaymentEvent struct {
	Reference    string
	SupplierName string
	PaidAt       time.Time
	Amount       decimal.Decimal
}

// IntegrationHandler receives procurement domain events for ledger integration.
type IntegrationHandler interface {
	HandleGoodsReceived(ctx context.Context, evt GoodsReceivedEvent) (journals.JournalEntry, error)
	HandleVendorPayment(ctx context.Context, evt VendorPaymentEvent) (journals.JournalEntry, error)
	PendingPayables(ctx context.Context) (decimal.Decimal, error)
	RevertPosting(ctx context.Context, entryID uuid.UUID, reason string) error
}

// StockPort changes stock levels.
type StockPort interface {
	Receive(ctx context.Context, lines []inventory.StockLine) error
	Reduce(ctx context.Context, lines []inventory.StockLine) ([]inventory.Product, error)
}

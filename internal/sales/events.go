package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
)

// FulfilledLine values one shipped line at the product's cost price.
type FulfilledLine struct {
	ProductID int64
	SKU       string
	Quantity  int64
	UnitCost  decimal.Decimal
}

// OrderFulfilledEvent is raised after stock for an order has been removed.
type OrderFulfilledEvent struct {
	OrderID     int64
	Number      string
	FulfilledAt time.Time
	Lines       []FulfilledLine
}

// IntegrationHandler receives sales events for ledger integration.
// HandleOrderFulfilled returns a zero entry when there was no cost to post.
// PostingStatus and PostedCOGS let an interrupted confirm or cancel resume.
type IntegrationHandler interface {
	HandleOrderFulfilled(ctx context.Context, evt OrderFulfilledEvent) (journals.JournalEntry, error)
	RevertPosting(ctx context.Context, entryID uuid.UUID, reason string) error
	PostingStatus(ctx context.Context, entryID uuid.UUID) (journals.JournalStatus, error)
	PostedCOGS(ctx context.Context, orderID int64) (journals.JournalEntry, bool, error)
}

// StockPort changes stock levels.
type StockPort interface {
	Reduce(ctx context.Context, lines []inventory.StockLine) ([]inventory.Product, error)
	Restore(ctx context.Context, lines []inventory.StockLine) error
}

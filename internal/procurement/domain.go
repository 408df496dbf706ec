package procurement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// POStatus enumerates purchase order statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusOrdered   POStatus = "ORDERED"
	POStatusReceived  POStatus = "RECEIVED"
	POStatusCancelled POStatus = "CANCELLED"
)

var (
	// ErrPONotFound indicates an unknown purchase order id.
	ErrPONotFound = errors.New("procurement: purchase order not found")
	// ErrInvalidStatus indicates the purchase order cannot make the requested transition.
	ErrInvalidStatus = errors.New("procurement: invalid purchase order status")
	// ErrInvalidPO indicates missing lines or bad amounts.
	ErrInvalidPO = errors.New("procurement: invalid purchase order")
	// ErrInvalidPayment indicates a vendor payment without supplier or positive amount.
	ErrInvalidPayment = errors.New("procurement: invalid vendor payment")
	// ErrExceedsPayable indicates a payment larger than what is owed to suppliers.
	ErrExceedsPayable = errors.New("procurement: payment exceeds pending payables")
)

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	ID             int64
	Number         string
	SupplierName   string
	OrderDate      time.Time
	Lines          []POLine
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Status         POStatus
	ReceiptEntry   string
	ReceiptEntryID uuid.UUID
	ReceivedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// POLine is one product ordered at UnitCost.
type POLine struct {
	ProductID int64
	Quantity  int64
	UnitCost  decimal.Decimal
}

// POInput for creating purchase orders. Subtotal is derived from the lines.
type POInput struct {
	Number       string
	SupplierName string
	OrderDate    time.Time
	Lines        []POLine
	Tax          decimal.Decimal
}

// VendorPayment records cash paid against accounts payable.
type VendorPayment struct {
	Reference    string
	SupplierName string
	Amount       decimal.Decimal
	PaidAt       time.Time
	Entry        string
	EntryID      uuid.UUID
}

// VendorPaymentInput requests a payment. Reference and PaidAt default when empty.
type VendorPaymentInput struct {
	SupplierName string
	Amount       decimal.Decimal
	Reference    string
	PaidAt       time.Time
}

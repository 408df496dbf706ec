package sales

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enumerates sales order statuses.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var (
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("sales: order not found")
	// ErrInvalidStatus indicates the order cannot make the requested transition.
	ErrInvalidStatus = errors.New("sales: invalid order status")
	// ErrEmptyOrder indicates an order without lines.
	ErrEmptyOrder = errors.New("sales: order requires at least one line")
)

// Order is a customer order fulfilled from stock. COGSEntry and COGSEntryID
// identify the cost posting and stay empty when the cost was zero.
type Order struct {
	ID           int64
	Number       string
	CustomerName string
	OrderDate    time.Time
	Lines        []OrderLine
	Status       OrderStatus
	COGSEntry    string
	COGSEntryID  uuid.UUID
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLine is one product on an order.
type OrderLine struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Total is the sell value of the order.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return total
}

// OrderInput for creating orders.
type OrderInput struct {
	Number       string
	CustomerName string
	OrderDate    time.Time
	Lines        []OrderLine
}

package ar

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates AR invoice statuses.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

var (
	// ErrInvoiceNotFound indicates an unknown invoice id.
	ErrInvoiceNotFound = errors.New("ar: invoice not found")
	// ErrInvalidStatus indicates the invoice cannot make the requested transition.
	ErrInvalidStatus = errors.New("ar: invalid invoice status")
	// ErrAlreadyPaid indicates a payment for a settled invoice.
	ErrAlreadyPaid = errors.New("ar: invoice already paid")
	// ErrInvalidAmounts indicates subtotal, tax and total disagree.
	ErrInvalidAmounts = errors.New("ar: invoice amounts invalid")
)

// Invoice model. SentEntry and PaymentEntry hold the JE numbers posted for
// the invoice's transitions.
type Invoice struct {
	ID           int64
	Number       string
	CustomerName string
	IssueDate    time.Time
	DueDate      time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Status       InvoiceStatus
	SentEntry    string
	PaymentEntry string
	PaidAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InvoiceInput for creating invoices.
type InvoiceInput struct {
	Number       string
	CustomerName string
	IssueDate    time.Time
	DueDate      time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
}

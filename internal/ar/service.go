package ar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service handles AR business logic. Every status transition that has a
// ledger effect posts first and only then updates the invoice.
type Service struct {
	repo   RepositoryPort
	ledger IntegrationHandler
	logger *slog.Logger
	locks  shared.KeyedMutex
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, ledger IntegrationHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInvoice stores a draft invoice. Total is derived from subtotal and tax.
func (s *Service) CreateInvoice(ctx context.Context, input InvoiceInput) (Invoice, error) {
	if strings.TrimSpace(input.Number) == "" {
		return Invoice{}, fmt.Errorf("%w: number required", ErrInvalidAmounts)
	}
	if !input.Subtotal.IsPositive() || input.Tax.IsNegative() {
		return Invoice{}, fmt.Errorf("%w: subtotal must be positive and tax non-negative", ErrInvalidAmounts)
	}
	now := s.now()
	issue := input.IssueDate
	if issue.IsZero() {
		issue = now
	}
	return s.repo.CreateInvoice(ctx, Invoice{
		Number:       input.Number,
		CustomerName: input.CustomerName,
		IssueDate:    issue,
		DueDate:      input.DueDate,
		Subtotal:     input.Subtotal,
		Tax:          input.Tax,
		Total:        input.Subtotal.Add(input.Tax),
		Status:       InvoiceStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// GetInvoice returns one invoice.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns all invoices.
func (s *Service) ListInvoices(ctx context.Context) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

// MarkSent moves a draft invoice to SENT after recognising its revenue.
func (s *Service) MarkSent(ctx context.Context, id int64) (Invoice, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("invoice", id))
	defer unlock()

	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusDraft {
		return Invoice{}, fmt.Errorf("%w: %s cannot be sent from %s", ErrInvalidStatus, inv.Number, inv.Status)
	}
	now := s.now()
	entry, err := s.ledger.HandleInvoiceSent(ctx, InvoiceSentEvent{
		InvoiceID:    inv.ID,
		Number:       inv.Number,
		CustomerName: inv.CustomerName,
		Subtotal:     inv.Subtotal,
		SentAt:       now,
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("ar: post invoice %s: %w", inv.Number, err)
	}

	inv.Status = InvoiceStatusSent
	inv.SentEntry = entry.Number
	inv.UpdatedAt = now
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return Invoice{}, s.revert(ctx, entry, inv.Number, err)
	}
	s.logger.Info("invoice sent", slog.String("invoice", inv.Number), slog.String("entry", entry.Number))
	return inv, nil
}

// MarkOverdue flags a sent invoice past its due date. No ledger effect.
func (s *Service) MarkOverdue(ctx context.Context, id int64) (Invoice, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("invoice", id))
	defer unlock()

	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusSent {
		return Invoice{}, fmt.Errorf("%w: %s cannot become overdue from %s", ErrInvalidStatus, inv.Number, inv.Status)
	}
	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = s.now()
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// MarkPaid settles a sent or overdue invoice. A second payment is rejected
// with ErrAlreadyPaid before anything is posted.
func (s *Service) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (Invoice, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("invoice", id))
	defer unlock()

	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case InvoiceStatusPaid:
		return Invoice{}, fmt.Errorf("%w: %s", ErrAlreadyPaid, inv.Number)
	case InvoiceStatusSent, InvoiceStatusOverdue:
	default:
		return Invoice{}, fmt.Errorf("%w: %s cannot be paid from %s", ErrInvalidStatus, inv.Number, inv.Status)
	}
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	entry, err := s.ledger.HandleInvoicePaid(ctx, InvoicePaidEvent{
		InvoiceID:    inv.ID,
		Number:       inv.Number,
		CustomerName: inv.CustomerName,
		Subtotal:     inv.Subtotal,
		Tax:          inv.Tax,
		Total:        inv.Total,
		PaidAt:       paidAt,
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("ar: post payment %s: %w", inv.Number, err)
	}

	inv.Status = InvoiceStatusPaid
	inv.PaymentEntry = entry.Number
	inv.PaidAt = &paidAt
	inv.UpdatedAt = s.now()
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return Invoice{}, s.revert(ctx, entry, inv.Number, err)
	}
	s.logger.Info("invoice paid", slog.String("invoice", inv.Number), slog.String("entry", entry.Number))
	return inv, nil
}

func (s *Service) revert(ctx context.Context, entry journals.JournalEntry, invoice string, cause error) error {
	reason := "invoice " + invoice + " update failed"
	if err := s.ledger.RevertPosting(ctx, entry.ID, reason); err != nil {
		s.logger.Error("revert posting", slog.String("entry", entry.Number), slog.Any("error", err))
		return errors.Join(fmt.Errorf("ar: update invoice %s: %w", invoice, cause), err)
	}
	return fmt.Errorf("ar: update invoice %s: %w", invoice, cause)
}

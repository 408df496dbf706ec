package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service manages pay runs and statutory remittances.
type Service struct {
	repo   RepositoryPort
	ledger IntegrationHandler
	logger *slog.Logger
	locks  shared.KeyedMutex
	now    func() time.Time
}

// NewService builds the payroll service.
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

// CreatePayRun stores a draft pay run after checking every stub.
func (s *Service) CreatePayRun(ctx context.Context, input PayRunInput) (PayRun, error) {
	if strings.TrimSpace(input.Period) == "" {
		return PayRun{}, errors.New("payroll: period required")
	}
	if len(input.Stubs) == 0 {
		return PayRun{}, fmt.Errorf("%w: pay run has no stubs", ErrInvalidStub)
	}
	for _, stub := range input.Stubs {
		if err := stub.Validate(); err != nil {
			return PayRun{}, err
		}
	}
	now := s.now()
	return s.repo.CreatePayRun(ctx, PayRun{
		Period:    input.Period,
		PayDate:   input.PayDate,
		Stubs:     input.Stubs,
		Status:    PayRunStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetPayRun returns one pay run.
func (s *Service) GetPayRun(ctx context.Context, id int64) (PayRun, error) {
	return s.repo.GetPayRun(ctx, id)
}

// Summary totals a stored pay run.
func (s *Service) Summary(ctx context.Context, id int64) (Summary, error) {
	run, err := s.repo.GetPayRun(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(run.Stubs), nil
}

// Approve moves a draft pay run to APPROVED. No ledger effect.
func (s *Service) Approve(ctx context.Context, id int64) (PayRun, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("pay_run", id))
	defer unlock()

	run, err := s.repo.GetPayRun(ctx, id)
	if err != nil {
		return PayRun{}, err
	}
	if run.Status != PayRunStatusDraft {
		return PayRun{}, fmt.Errorf("%w: pay run %s cannot be approved from %s", ErrInvalidStatus, run.Period, run.Status)
	}
	run.Status = PayRunStatusApproved
	run.UpdatedAt = s.now()
	if err := s.repo.UpdatePayRun(ctx, run); err != nil {
		return PayRun{}, err
	}
	return run, nil
}

// Pay disburses an approved pay run. The run becomes PAID only after the
// payroll entry is posted.
func (s *Service) Pay(ctx context.Context, id int64) (PayRun, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("pay_run", id))
	defer unlock()

	run, err := s.repo.GetPayRun(ctx, id)
	if err != nil {
		return PayRun{}, err
	}
	if run.Status != PayRunStatusApproved {
		return PayRun{}, fmt.Errorf("%w: pay run %s cannot be paid from %s", ErrInvalidStatus, run.Period, run.Status)
	}
	now := s.now()
	payDate := run.PayDate
	if payDate.IsZero() {
		payDate = now
	}
	entry, err := s.ledger.HandlePayRunPaid(ctx, PayRunPaidEvent{
		PayRunID: run.ID,
		Period:   run.Period,
		PayDate:  payDate,
		Summary:  Summarize(run.Stubs),
	})
	if err != nil {
		return PayRun{}, fmt.Errorf("payroll: post pay run %s: %w", run.Period, err)
	}

	run.Status = PayRunStatusPaid
	run.Entry = entry.Number
	run.EntryID = entry.ID
	run.PaidAt = &now
	run.UpdatedAt = now
	if err := s.repo.UpdatePayRun(ctx, run); err != nil {
		return PayRun{}, s.revert(ctx, entry, "pay run "+run.Period, err)
	}
	s.logger.Info("pay run paid", slog.String("period", run.Period), slog.String("entry", entry.Number))
	return run, nil
}

// PendingRemittance reports the statutory balances currently owed.
func (s *Service) PendingRemittance(ctx context.Context) (Allocation, error) {
	return s.ledger.PendingRemittance(ctx)
}

// Remit pays statutory deductions. Without an explicit allocation every
// pending payable balance is remitted.
func (s *Service) Remit(ctx context.Context, input RemitInput) (Remittance, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("remittance", "payroll"))
	defer unlock()

	var alloc Allocation
	if input.Allocation != nil {
		alloc = *input.Allocation
	} else {
		pending, err := s.ledger.PendingRemittance(ctx)
		if err != nil {
			return Remittance{}, err
		}
		alloc = pending
	}
	for _, amt := range []decimal.Decimal{alloc.FederalTax, alloc.ProvincialTax, alloc.CPP, alloc.EI} {
		if amt.IsNegative() {
			return Remittance{}, fmt.Errorf("%w: negative allocation %s", ErrNothingToRemit, amt)
		}
	}
	if !alloc.Total().IsPositive() {
		return Remittance{}, ErrNothingToRemit
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("REM-%s", paidAt.Format("20060102150405"))
	}
	entry, err := s.ledger.HandleRemittance(ctx, RemittanceEvent{
		Reference:  reference,
		Period:     input.Period,
		PaidAt:     paidAt,
		Allocation: alloc,
	})
	if err != nil {
		return Remittance{}, fmt.Errorf("payroll: post remittance %s: %w", reference, err)
	}
	rem := Remittance{Reference: reference, Period: input.Period, PaidAt: paidAt, Allocation: alloc, Entry: entry.Number}
	if err := s.repo.CreateRemittance(ctx, rem); err != nil {
		return Remittance{}, s.revert(ctx, entry, "remittance "+reference, err)
	}
	s.logger.Info("remittance posted", slog.String("reference", reference), slog.String("entry", entry.Number))
	return rem, nil
}

func (s *Service) revert(ctx context.Context, entry journals.JournalEntry, subject string, cause error) error {
	wrapped := fmt.Errorf("payroll: update %s: %w", subject, cause)
	if err := s.ledger.RevertPosting(ctx, entry.ID, subject+" update failed"); err != nil {
		s.logger.Error("revert posting", slog.String("entry", entry.Number), slog.Any("error", err))
		return errors.Join(wrapped, err)
	}
	return wrapped
}

package ar

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

var paidAt = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

type stubLedger struct {
	mu       sync.Mutex
	sent     []InvoiceSentEvent
	paid     []InvoicePaidEvent
	reverted []uuid.UUID
	failPost error
}

func (l *stubLedger) HandleInvoiceSent(_ context.Context, evt InvoiceSentEvent) (journals.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failPost != nil {
		return journals.JournalEntry{}, l.failPost
	}
	l.sent = append(l.sent, evt)
	return journals.JournalEntry{ID: uuid.New(), Number: "JE-2024-001"}, nil
}

func (l *stubLedger) HandleInvoicePaid(_ context.Context, evt InvoicePaidEvent) (journals.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failPost != nil {
		return journals.JournalEntry{}, l.failPost
	}
	l.paid = append(l.paid, evt)
	return journals.JournalEntry{ID: uuid.New(), Number: "JE-2024-002"}, nil
}

func (l *stubLedger) RevertPosting(_ context.Context, id uuid.UUID, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reverted = append(l.reverted, id)
	return nil
}

type failingUpdates struct {
	*MemoryRepository
	fail atomic.Bool
}

func (r *failingUpdates) UpdateInvoice(ctx context.Context, inv Invoice) error {
	if r.fail.Load() {
		return errors.New("write timeout")
	}
	return r.MemoryRepository.UpdateInvoice(ctx, inv)
}

func newInvoice(t *testing.T, svc *Service) Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), InvoiceInput{
		Number:       "INV-001",
		CustomerName: "Acme",
		Subtotal:     decimal.NewFromInt(1000),
		Tax:          decimal.NewFromInt(130),
	})
	require.NoError(t, err)
	return inv
}

func TestCreateInvoiceDerivesTotal(t *testing.T) {
	svc := NewService(NewMemoryRepository(), &stubLedger{}, nil)
	inv := newInvoice(t, svc)
	require.Equal(t, "1130", inv.Total.String())
	require.Equal(t, InvoiceStatusDraft, inv.Status)

	_, err := svc.CreateInvoice(context.Background(), InvoiceInput{Number: "INV-002", Subtotal: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidAmounts)
}

func TestInvoiceTransitions(t *testing.T) {
	ledger := &stubLedger{}
	svc := NewService(NewMemoryRepository(), ledger, nil)
	ctx := context.Background()
	inv := newInvoice(t, svc)

	_, err := svc.MarkPaid(ctx, inv.ID, paidAt)
	require.ErrorIs(t, err, ErrInvalidStatus)

	inv, err = svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusSent, inv.Status)
	require.Equal(t, "JE-2024-001", inv.SentEntry)

	inv, err = svc.MarkOverdue(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusOverdue, inv.Status)

	inv, err = svc.MarkPaid(ctx, inv.ID, paidAt)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, inv.Status)
	require.Equal(t, paidAt, *inv.PaidAt)
	require.Len(t, ledger.paid, 1)
	require.Equal(t, "130", ledger.paid[0].Tax.String())

	_, err = svc.MarkPaid(ctx, inv.ID, paidAt)
	require.ErrorIs(t, err, ErrAlreadyPaid)
	require.Len(t, ledger.paid, 1)
}

func TestMarkSentPostingFailureKeepsDraft(t *testing.T) {
	ledger := &stubLedger{failPost: errors.New("ledger down")}
	svc := NewService(NewMemoryRepository(), ledger, nil)
	inv := newInvoice(t, svc)

	_, err := svc.MarkSent(context.Background(), inv.ID)
	require.Error(t, err)
	stored, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusDraft, stored.Status)
}

func TestUpdateFailureRevertsPosting(t *testing.T) {
	ledger := &stubLedger{}
	repo := &failingUpdates{MemoryRepository: NewMemoryRepository()}
	svc := NewService(repo, ledger, nil)
	inv := newInvoice(t, svc)

	repo.fail.Store(true)
	_, err := svc.MarkSent(context.Background(), inv.ID)
	require.Error(t, err)
	require.Len(t, ledger.reverted, 1)

	stored, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusDraft, stored.Status)
}

func TestConcurrentPaymentsPostOnce(t *testing.T) {
	ledger := &stubLedger{}
	svc := NewService(NewMemoryRepository(), ledger, nil)
	ctx := context.Background()
	inv := newInvoice(t, svc)
	_, err := svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MarkPaid(ctx, inv.ID, paidAt); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, ok.Load())
	require.Len(t, ledger.paid, 1)
}

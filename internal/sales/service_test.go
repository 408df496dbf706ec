package sales

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
)

type stubLedger struct {
	mu         sync.Mutex
	events     []OrderFulfilledEvent
	reverted   []uuid.UUID
	entries    map[uuid.UUID]journals.JournalEntry
	orderOf    map[uuid.UUID]int64
	failPost   error
	failRevert error
	noCost     bool
}

func (l *stubLedger) HandleOrderFulfilled(_ context.Context, evt OrderFulfilledEvent) (journals.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failPost != nil {
		return journals.JournalEntry{}, l.failPost
	}
	l.events = append(l.events, evt)
	if l.noCost {
		return journals.JournalEntry{}, nil
	}
	if l.entries == nil {
		l.entries = map[uuid.UUID]journals.JournalEntry{}
		l.orderOf = map[uuid.UUID]int64{}
	}
	entry := journals.JournalEntry{ID: uuid.New(), Number: "JE-2024-010", Status: journals.JournalStatusPosted}
	l.entries[entry.ID] = entry
	l.orderOf[entry.ID] = evt.OrderID
	return entry, nil
}

func (l *stubLedger) RevertPosting(_ context.Context, id uuid.UUID, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failRevert != nil {
		return l.failRevert
	}
	entry := l.entries[id]
	if entry.Status == journals.JournalStatusVoid {
		return errors.New("journal entry already void")
	}
	entry.Status = journals.JournalStatusVoid
	l.entries[id] = entry
	l.reverted = append(l.reverted, id)
	return nil
}

func (l *stubLedger) PostingStatus(_ context.Context, id uuid.UUID) (journals.JournalStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		return "", errors.New("journal entry not found")
	}
	return entry.Status, nil
}

func (l *stubLedger) PostedCOGS(_ context.Context, orderID int64) (journals.JournalEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, entry := range l.entries {
		if l.orderOf[id] == orderID && entry.Status == journals.JournalStatusPosted {
			return entry, true, nil
		}
	}
	return journals.JournalEntry{}, false, nil
}

type failingUpdates struct {
	*MemoryRepository
}

func (r *failingUpdates) UpdateOrder(context.Context, Order) error {
	return errors.New("deadlock detected")
}

// flakyUpdates fails the first write that moves an order to status.
type flakyUpdates struct {
	*MemoryRepository
	status OrderStatus
	failed bool
}

func (r *flakyUpdates) UpdateOrder(ctx context.Context, o Order) error {
	if o.Status == r.status && !r.failed {
		r.failed = true
		return errors.New("connection reset")
	}
	return r.MemoryRepository.UpdateOrder(ctx, o)
}

// flakyStock fails the first Restore.
type flakyStock struct {
	*inventory.Service
	failed bool
}

func (s *flakyStock) Restore(ctx context.Context, lines []inventory.StockLine) error {
	if !s.failed {
		s.failed = true
		return errors.New("inventory unavailable")
	}
	return s.Service.Restore(ctx, lines)
}

type fixture struct {
	svc    *Service
	stock  *inventory.Service
	ledger *stubLedger
	widget inventory.Product
}

func newFixture(t *testing.T, repo RepositoryPort) fixture {
	t.Helper()
	stock := inventory.NewService(inventory.NewMemoryRepository(), nil)
	widget, err := stock.SaveProduct(context.Background(), inventory.Product{
		SKU: "W-1", Name: "Widget", CostPrice: decimal.RequireFromString("12.50"), Quantity: 10,
	})
	require.NoError(t, err)
	ledger := &stubLedger{}
	return fixture{svc: NewService(repo, stock, ledger, nil), stock: stock, ledger: ledger, widget: widget}
}

func (f fixture) order(t *testing.T, qty int64) Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), OrderInput{
		Number: "SO-1", CustomerName: "Acme",
		Lines: []OrderLine{{ProductID: f.widget.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(30)}},
	})
	require.NoError(t, err)
	return o
}

func (f fixture) onHand(t *testing.T) int64 {
	t.Helper()
	p, err := f.stock.GetProduct(context.Background(), f.widget.ID)
	require.NoError(t, err)
	return p.Quantity
}

func TestConfirmOrderReducesStockAndPostsCost(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	o := f.order(t, 4)
	require.Equal(t, "120", o.Total().String())

	confirmed, err := f.svc.ConfirmOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusConfirmed, confirmed.Status)
	require.Equal(t, "JE-2024-010", confirmed.COGSEntry)
	require.EqualValues(t, 6, f.onHand(t))

	require.Len(t, f.ledger.events, 1)
	line := f.ledger.events[0].Lines[0]
	require.Equal(t, "W-1", line.SKU)
	require.Equal(t, "12.5", line.UnitCost.String())

	_, err = f.svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConfirmOrderShortageChangesNothing(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	o := f.order(t, 11)

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.EqualValues(t, 10, f.onHand(t))
	require.Empty(t, f.ledger.events)
}

func TestConfirmOrderPostFailureRestoresStock(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	f.ledger.failPost = errors.New("account inactive")
	o := f.order(t, 3)

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID)
	require.Error(t, err)
	require.EqualValues(t, 10, f.onHand(t))
	stored, err := f.svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, stored.Status)
}

func TestConfirmOrderUpdateFailureRevertsEverything(t *testing.T) {
	f := newFixture(t, &failingUpdates{MemoryRepository: NewMemoryRepository()})
	o := f.order(t, 3)

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID)
	require.Error(t, err)
	require.Len(t, f.ledger.reverted, 1)
	require.EqualValues(t, 10, f.onHand(t))
}

func TestConfirmOrderWithoutCostSkipsRevert(t *testing.T) {
	f := newFixture(t, &failingUpdates{MemoryRepository: NewMemoryRepository()})
	f.ledger.noCost = true
	o := f.order(t, 1)

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID)
	require.Error(t, err)
	require.Empty(t, f.ledger.reverted)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	o := f.order(t, 2)
	confirmed, err := f.svc.ConfirmOrder(ctx, o.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelOrder(ctx, o.ID, "customer request")
	require.NoError(t, err)
	require.Equal(t, OrderStatusCancelled, cancelled.Status)
	require.Equal(t, []uuid.UUID{confirmed.COGSEntryID}, f.ledger.reverted)
	require.EqualValues(t, 10, f.onHand(t))

	_, err = f.svc.CancelOrder(ctx, o.ID, "again")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConfirmOrderUnrevertableCostIsRecordedOnRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &flakyUpdates{MemoryRepository: NewMemoryRepository(), status: OrderStatusConfirmed})
	f.ledger.failRevert = errors.New("storage failure")
	o := f.order(t, 3)

	_, err := f.svc.ConfirmOrder(ctx, o.ID)
	require.Error(t, err)
	require.EqualValues(t, 7, f.onHand(t))
	stored, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, stored.Status)

	_, err = f.svc.CancelOrder(ctx, o.ID, "changed mind")
	require.ErrorIs(t, err, ErrInvalidStatus)

	f.ledger.failRevert = nil
	confirmed, err := f.svc.ConfirmOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusConfirmed, confirmed.Status)
	require.Equal(t, "JE-2024-010", confirmed.COGSEntry)
	require.Len(t, f.ledger.events, 1)
	require.Empty(t, f.ledger.reverted)
	require.EqualValues(t, 7, f.onHand(t))
}

func TestCancelOrderUpdateFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &flakyUpdates{MemoryRepository: NewMemoryRepository(), status: OrderStatusCancelled})
	o := f.order(t, 2)
	confirmed, err := f.svc.ConfirmOrder(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, o.ID, "customer request")
	require.Error(t, err)
	stored, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusConfirmed, stored.Status)
	require.EqualValues(t, 8, f.onHand(t))

	cancelled, err := f.svc.CancelOrder(ctx, o.ID, "customer request")
	require.NoError(t, err)
	require.Equal(t, OrderStatusCancelled, cancelled.Status)
	require.Equal(t, []uuid.UUID{confirmed.COGSEntryID}, f.ledger.reverted)
	require.EqualValues(t, 10, f.onHand(t))
}

func TestCancelOrderRestoreFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryRepository())
	stock := &flakyStock{Service: f.stock}
	svc := NewService(NewMemoryRepository(), stock, f.ledger, nil)
	o, err := svc.CreateOrder(ctx, OrderInput{
		Number: "SO-2",
		Lines:  []OrderLine{{ProductID: f.widget.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(30)}},
	})
	require.NoError(t, err)
	_, err = svc.ConfirmOrder(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, o.ID, "damaged")
	require.ErrorContains(t, err, "inventory unavailable")
	require.EqualValues(t, 8, f.onHand(t))

	cancelled, err := svc.CancelOrder(ctx, o.ID, "damaged")
	require.NoError(t, err)
	require.Equal(t, OrderStatusCancelled, cancelled.Status)
	require.Len(t, f.ledger.reverted, 1)
	require.EqualValues(t, 10, f.onHand(t))
}

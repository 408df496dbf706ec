package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service handles sales orders. Confirmation removes stock, posts the cost
// of goods sold and only then marks the order confirmed.
type Service struct {
	repo   RepositoryPort
	stock  StockPort
	ledger IntegrationHandler
	logger *slog.Logger
	locks  shared.KeyedMutex
	now    func() time.Time
}

// NewService builds the sales service.
func NewService(repo RepositoryPort, stock StockPort, ledger IntegrationHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, ledger: ledger, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateOrder stores a draft order.
func (s *Service) CreateOrder(ctx context.Context, input OrderInput) (Order, error) {
	if strings.TrimSpace(input.Number) == "" {
		return Order{}, errors.New("sales: order number required")
	}
	if len(input.Lines) == 0 {
		return Order{}, ErrEmptyOrder
	}
	for _, l := range input.Lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			return Order{}, fmt.Errorf("sales: invalid line for product %d", l.ProductID)
		}
	}
	now := s.now()
	date := input.OrderDate
	if date.IsZero() {
		date = now
	}
	return s.repo.CreateOrder(ctx, Order{
		Number:       input.Number,
		CustomerName: input.CustomerName,
		OrderDate:    date,
		Lines:        input.Lines,
		Status:       OrderStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// GetOrder returns one order.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns all orders.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrders(ctx)
}

// ConfirmOrder fulfils a draft order. When stock is short nothing changes;
// when the cost posting fails the removed stock is put back. If the order
// cannot be recorded and its cost cannot be voided either, stock stays
// removed and the next ConfirmOrder records the existing cost entry.
func (s *Service) ConfirmOrder(ctx context.Context, id int64) (Order, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("sales_order", id))
	defer unlock()

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.Status != OrderStatusDraft {
		return Order{}, fmt.Errorf("%w: %s cannot be confirmed from %s", ErrInvalidStatus, order.Number, order.Status)
	}

	prior, found, err := s.ledger.PostedCOGS(ctx, order.ID)
	if err != nil {
		return Order{}, fmt.Errorf("sales: look up cost of %s: %w", order.Number, err)
	}
	if found {
		s.logger.Warn("recording earlier cost posting",
			slog.String("order", order.Number),
			slog.String("entry", prior.Number))
		return s.markConfirmed(ctx, order, prior)
	}

	lines := stockLines(order)
	products, err := s.stock.Reduce(ctx, lines)
	if err != nil {
		return Order{}, fmt.Errorf("sales: reserve stock for %s: %w", order.Number, err)
	}

	evt := OrderFulfilledEvent{OrderID: order.ID, Number: order.Number, FulfilledAt: s.now()}
	for i, l := range order.Lines {
		evt.Lines = append(evt.Lines, FulfilledLine{
			ProductID: l.ProductID,
			SKU:       products[i].SKU,
			Quantity:  l.Quantity,
			UnitCost:  products[i].CostPrice,
		})
	}
	entry, err := s.ledger.HandleOrderFulfilled(ctx, evt)
	if err != nil {
		return Order{}, s.restore(ctx, order.Number, lines, fmt.Errorf("sales: post cost of %s: %w", order.Number, err))
	}

	confirmed, err := s.markConfirmed(ctx, order, entry)
	if err == nil {
		return confirmed, nil
	}
	if entry.ID == uuid.Nil {
		return Order{}, s.restore(ctx, order.Number, lines, err)
	}
	if revertErr := s.ledger.RevertPosting(ctx, entry.ID, "order "+order.Number+" update failed"); revertErr != nil {
		s.logger.Error("cost posted but order not recorded",
			slog.String("order", order.Number),
			slog.String("entry", entry.Number),
			slog.Any("error", revertErr))
		return Order{}, errors.Join(err, revertErr)
	}
	return Order{}, s.restore(ctx, order.Number, lines, err)
}

func (s *Service) markConfirmed(ctx context.Context, order Order, entry journals.JournalEntry) (Order, error) {
	now := s.now()
	order.Status = OrderStatusConfirmed
	order.COGSEntry = entry.Number
	order.COGSEntryID = entry.ID
	order.ConfirmedAt = &now
	order.UpdatedAt = now
	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		return Order{}, fmt.Errorf("sales: update order %s: %w", order.Number, err)
	}
	s.logger.Info("sales order confirmed",
		slog.String("order", order.Number),
		slog.String("entry", entry.Number))
	return order, nil
}

// CancelOrder reverses a confirmed order: the cost posting is voided, stock
// is returned and the order is marked cancelled. A draft is simply cancelled.
// A failed attempt leaves the order confirmed with stock out, so calling
// CancelOrder again finishes the job; an already voided cost is not voided twice.
func (s *Service) CancelOrder(ctx context.Context, id int64, reason string) (Order, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("sales_order", id))
	defer unlock()

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	var returned []inventory.StockLine
	switch order.Status {
	case OrderStatusDraft:
		stranded, found, err := s.ledger.PostedCOGS(ctx, order.ID)
		if err != nil {
			return Order{}, fmt.Errorf("sales: look up cost of %s: %w", order.Number, err)
		}
		if found {
			return Order{}, fmt.Errorf("%w: %s has unrecorded cost entry %s, confirm it before cancelling", ErrInvalidStatus, order.Number, stranded.Number)
		}
	case OrderStatusConfirmed:
		if err := s.voidCost(ctx, order, reason); err != nil {
			return Order{}, err
		}
		returned = stockLines(order)
		if err := s.stock.Restore(ctx, returned); err != nil {
			s.logger.Error("restore stock after cancel", slog.String("order", order.Number), slog.Any("error", err))
			return Order{}, fmt.Errorf("sales: restore stock for %s: %w", order.Number, err)
		}
	default:
		return Order{}, fmt.Errorf("%w: %s cannot be cancelled from %s", ErrInvalidStatus, order.Number, order.Status)
	}
	order.Status = OrderStatusCancelled
	order.UpdatedAt = s.now()
	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		cause := fmt.Errorf("sales: update order %s: %w", order.Number, err)
		if len(returned) == 0 {
			return Order{}, cause
		}
		if _, reduceErr := s.stock.Reduce(ctx, returned); reduceErr != nil {
			s.logger.Error("take back stock after failed cancel", slog.String("order", order.Number), slog.Any("error", reduceErr))
			return Order{}, errors.Join(cause, reduceErr)
		}
		return Order{}, cause
	}
	return order, nil
}

func (s *Service) voidCost(ctx context.Context, order Order, reason string) error {
	if order.COGSEntryID == uuid.Nil {
		return nil
	}
	status, err := s.ledger.PostingStatus(ctx, order.COGSEntryID)
	if err != nil {
		return fmt.Errorf("sales: cost status of %s: %w", order.Number, err)
	}
	if status != journals.JournalStatusPosted {
		return nil
	}
	if err := s.ledger.RevertPosting(ctx, order.COGSEntryID, reason); err != nil {
		return fmt.Errorf("sales: void cost of %s: %w", order.Number, err)
	}
	return nil
}

func (s *Service) restore(ctx context.Context, number string, lines []inventory.StockLine, cause error) error {
	if err := s.stock.Restore(ctx, lines); err != nil {
		s.logger.Error("restore stock", slog.String("order", number), slog.Any("error", err))
		return errors.Join(cause, err)
	}
	return cause
}

func stockLines(o Order) []inventory.StockLine {
	lines := make([]inventory.StockLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = inventory.StockLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return lines
}

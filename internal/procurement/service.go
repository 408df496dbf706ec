package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service handles purchase orders and their receipt into stock.
type Service struct {
	repo   RepositoryPort
	stock  StockPort
	ledger IntegrationHandler
	logger *slog.Logger
	locks  shared.KeyedMutex
	now    func() time.Time
}

// NewService builds the procurement service.
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

// CreatePO stores a purchase order already placed with the supplier.
func (s *Service) CreatePO(ctx context.Context, input POInput) (PurchaseOrder, error) {
	if strings.TrimSpace(input.Number) == "" || len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: number and lines required", ErrInvalidPO)
	}
	if input.Tax.IsNegative() {
		return PurchaseOrder{}, fmt.Errorf("%w: negative tax", ErrInvalidPO)
	}
	subtotal := decimal.Zero
	for _, l := range input.Lines {
		if l.Quantity <= 0 || l.UnitCost.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: line for product %d", ErrInvalidPO, l.ProductID)
		}
		subtotal = subtotal.Add(l.UnitCost.Mul(decimal.NewFromInt(l.Quantity)))
	}
	subtotal = subtotal.Round(2)
	now := s.now()
	date := input.OrderDate
	if date.IsZero() {
		date = now
	}
	return s.repo.CreatePO(ctx, PurchaseOrder{
		Number:       input.Number,
		SupplierName: input.SupplierName,
		OrderDate:    date,
		Lines:        input.Lines,
		Subtotal:     subtotal,
		Tax:          input.Tax,
		Total:        subtotal.Add(input.Tax),
		Status:       POStatusOrdered,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// GetPO returns one purchase order.
func (s *Service) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// ReceiveOrder books the goods into stock, posts the payable and marks the
// order received. A receipt that cannot be posted takes the stock back out.
func (s *Service) ReceiveOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("purchase_order", id))
	defer unlock()

	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != POStatusOrdered && po.Status != POStatusDraft {
		return PurchaseOrder{}, fmt.Errorf("%w: %s cannot be received from %s", ErrInvalidStatus, po.Number, po.Status)
	}

	lines := make([]inventory.StockLine, len(po.Lines))
	for i, l := range po.Lines {
		lines[i] = inventory.StockLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	if err := s.stock.Receive(ctx, lines); err != nil {
		return PurchaseOrder{}, fmt.Errorf("procurement: receive stock for %s: %w", po.Number, err)
	}

	now := s.now()
	entry, err := s.ledger.HandleGoodsReceived(ctx, GoodsReceivedEvent{
		OrderID:      po.ID,
		Number:       po.Number,
		SupplierName: po.SupplierName,
		ReceivedAt:   now,
		Subtotal:     po.Subtotal,
		Tax:          po.Tax,
		Total:        po.Total,
	})
	if err != nil {
		return PurchaseOrder{}, s.unreceive(ctx, po.Number, lines, fmt.Errorf("procurement: post receipt %s: %w", po.Number, err))
	}

	po.Status = POStatusReceived
	po.ReceiptEntry = entry.Number
	po.ReceiptEntryID = entry.ID
	po.ReceivedAt = &now
	po.UpdatedAt = now
	if err := s.repo.UpdatePO(ctx, po); err != nil {
		cause := fmt.Errorf("procurement: update %s: %w", po.Number, err)
		if revertErr := s.ledger.RevertPosting(ctx, entry.ID, "purchase order "+po.Number+" update failed"); revertErr != nil {
			cause = errors.Join(cause, revertErr)
		}
		return PurchaseOrder{}, s.unreceive(ctx, po.Number, lines, cause)
	}
	s.logger.Info("purchase order received", slog.String("order", po.Number), slog.String("entry", entry.Number))
	return po, nil
}

// CancelPO cancels an order that has not been received.
func (s *Service) CancelPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	unlock := s.locks.Lock(shared.LedgerLockKey("purchase_order", id))
	defer unlock()

	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != POStatusOrdered && po.Status != POStatusDraft {
		return PurchaseOrder{}, fmt.Errorf("%w: %s cannot be cancelled from %s", ErrInvalidStatus, po.Number, po.Status)
	}
	po.Status = POStatusCancelled
	po.UpdatedAt = s.now()
	if err := s.repo.UpdatePO(ctx, po); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// PendingPayables reports what is currently owed to suppliers.
func (s *Service) PendingPayables(ctx context.Context) (decimal.Decimal, error) {
	return s.ledger.PendingPayables(ctx)
}

// ListPayments returns recorded vendor payments.
func (s *Service) ListPayments(ctx context.Context) ([]VendorPayment, error) {
	return s.repo.ListPayments(ctx)
}

// PayVendor pays a supplier from cash and clears the matching payable. The
// amount may not exceed the pending accounts payable balance.
func (s *Service) PayVendor(ctx context.Context, input VendorPaymentInput) (VendorPayment, error) {
	if strings.TrimSpace(input.SupplierName) == "" {
		return VendorPayment{}, fmt.Errorf("%w: supplier required", ErrInvalidPayment)
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return VendorPayment{}, fmt.Errorf("%w: amount %s", ErrInvalidPayment, input.Amount)
	}

	unlock := s.locks.Lock(shared.LedgerLockKey("vendor_payment", "ap"))
	defer unlock()

	pending, err := s.ledger.PendingPayables(ctx)
	if err != nil {
		return VendorPayment{}, fmt.Errorf("procurement: read payables: %w", err)
	}
	if amount.GreaterThan(pending) {
		return VendorPayment{}, fmt.Errorf("%w: paying %s, owed %s", ErrExceedsPayable, amount.StringFixed(2), pending.StringFixed(2))
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = fmt.Sprintf("VP-%s", paidAt.Format("20060102150405"))
	}
	entry, err := s.ledger.HandleVendorPayment(ctx, VendorPaymentEvent{
		Reference:    reference,
		SupplierName: input.SupplierName,
		PaidAt:       paidAt,
		Amount:       amount,
	})
	if err != nil {
		return VendorPayment{}, fmt.Errorf("procurement: post vendor payment %s: %w", reference, err)
	}

	payment := VendorPayment{
		Reference:    reference,
		SupplierName: input.SupplierName,
		Amount:       amount,
		PaidAt:       paidAt,
		Entry:        entry.Number,
		EntryID:      entry.ID,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		cause := fmt.Errorf("procurement: record payment %s: %w", reference, err)
		if revertErr := s.ledger.RevertPosting(ctx, entry.ID, "vendor payment "+reference+" not recorded"); revertErr != nil {
			s.logger.Error("revert vendor payment", slog.String("entry", entry.Number), slog.Any("error", revertErr))
			return VendorPayment{}, errors.Join(cause, revertErr)
		}
		return VendorPayment{}, cause
	}
	s.logger.Info("vendor paid",
		slog.String("supplier", input.SupplierName),
		slog.String("reference", reference),
		slog.String("entry", entry.Number))
	return payment, nil
}

func (s *Service) unreceive(ctx context.Context, number string, lines []inventory.StockLine, cause error) error {
	if _, err := s.stock.Reduce(ctx, lines); err != nil {
		s.logger.Error("take back received stock", slog.String("order", number), slog.Any("error", err))
		return errors.Join(cause, err)
	}
	return cause
}

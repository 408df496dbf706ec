package procurement

import (
	"context"
	"fmt"
	"sync"
)

// RepositoryPort persists purchase orders.
type RepositoryPort interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	UpdatePO(ctx context.Context, po PurchaseOrder) error
	CreatePayment(ctx context.Context, p VendorPayment) error
	ListPayments(ctx context.Context) ([]VendorPayment, error)
}

// MemoryRepository keeps purchase orders in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders   map[int64]PurchaseOrder
	payments []VendorPayment
	nextID   int64
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[int64]PurchaseOrder)}
}

func (r *MemoryRepository) CreatePO(_ context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	po.ID = r.nextID
	po.Lines = append([]POLine(nil), po.Lines...)
	r.orders[po.ID] = po
	return po, nil
}

func (r *MemoryRepository) GetPO(_ context.Context, id int64) (PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrPONotFound
	}
	po.Lines = append([]POLine(nil), po.Lines...)
	return po, nil
}

func (r *MemoryRepository) UpdatePO(_ context.Context, po PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[po.ID]; !ok {
		return ErrPONotFound
	}
	r.orders[po.ID] = po
	return nil
}

func (r *MemoryRepository) CreatePayment(_ context.Context, p VendorPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.Reference == p.Reference {
			return fmt.Errorf("%w: duplicate reference %s", ErrInvalidPayment, p.Reference)
		}
	}
	r.payments = append(r.payments, p)
	return nil
}

func (r *MemoryRepository) ListPayments(_ context.Context) ([]VendorPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]VendorPayment(nil), r.payments...), nil
}

package ar

import (
	"context"
	"sort"
	"sync"
)

// RepositoryPort defines data access methods for AR.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	ListInvoices(ctx context.Context) ([]Invoice, error)
}

// MemoryRepository keeps invoices in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	invoices map[int64]Invoice
	nextID   int64
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{invoices: make(map[int64]Invoice)}
}

func (r *MemoryRepository) CreateInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *MemoryRepository) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *MemoryRepository) UpdateInvoice(_ context.Context, inv Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *MemoryRepository) ListInvoices(_ context.Context) ([]Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

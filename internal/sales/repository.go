package sales

import (
	"context"
	"sort"
	"sync"
)

// RepositoryPort persists orders.
type RepositoryPort interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	ListOrders(ctx context.Context) ([]Order, error)
}

// MemoryRepository keeps orders in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[int64]Order
	nextID int64
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[int64]Order)}
}

func (r *MemoryRepository) CreateOrder(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.Lines = append([]OrderLine(nil), o.Lines...)
	r.orders[o.ID] = o
	return o, nil
}

func (r *MemoryRepository) GetOrder(_ context.Context, id int64) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	o.Lines = append([]OrderLine(nil), o.Lines...)
	return o, nil
}

func (r *MemoryRepository) UpdateOrder(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return ErrOrderNotFound
	}
	o.Lines = append([]OrderLine(nil), o.Lines...)
	r.orders[o.ID] = o
	return nil
}

func (r *MemoryRepository) ListOrders(_ context.Context) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

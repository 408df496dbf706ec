package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]Account)}
}

func (r *MemoryRepository) Get(_ context.Context, code string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[code]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return acc, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, acc Account) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.accounts[acc.Code]; ok {
		return existing, false, nil
	}
	acc.Balance = acc.OpeningBalance
	acc.UpdatedAt = acc.CreatedAt
	r.accounts[acc.Code] = acc
	return acc, true, nil
}

func (r *MemoryRepository) AddBalance(_ context.Context, code string, delta decimal.Decimal, at time.Time) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[code]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	acc.Balance = acc.Balance.Add(delta)
	acc.UpdatedAt = at
	r.accounts[code] = acc
	return acc, nil
}

func (r *MemoryRepository) SetActive(_ context.Context, code string, active bool, at time.Time) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[code]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	acc.IsActive = active
	acc.UpdatedAt = at
	r.accounts[code] = acc
	return acc, nil
}

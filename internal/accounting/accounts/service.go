package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	common "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ErrInvalidSpec indicates an account definition missing code, name or a known type.
var ErrInvalidSpec = errors.New("accounts: invalid account definition")

// Observer receives balance changes after they are stored.
type Observer func(ctx context.Context, change BalanceChange)

// Registry is the single owner of account balances. It is constructed once
// and injected into the posting engine and hooks.
type Registry struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	locks  common.KeyedMutex

	obsMu     sync.RWMutex
	observers []Observer
}

// NewRegistry builds a Registry over repo.
func NewRegistry(repo Repository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used in tests.
func (r *Registry) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Subscribe registers obs for every subsequent balance change.
func (r *Registry) Subscribe(obs Observer) {
	if obs == nil {
		return
	}
	r.obsMu.Lock()
	r.observers = append(r.observers, obs)
	r.obsMu.Unlock()
}

// GetAccount returns the account identified by code.
func (r *Registry) GetAccount(ctx context.Context, code string) (Account, error) {
	acc, err := r.repo.Get(ctx, code)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return Account{}, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, code)
	}
	if err != nil {
		return Account{}, shared.NewStorageError("get account", err)
	}
	return acc, nil
}

// List returns all accounts ordered by code.
func (r *Registry) List(ctx context.Context) ([]Account, error) {
	accounts, err := r.repo.List(ctx)
	if err != nil {
		return nil, shared.NewStorageError("list accounts", err)
	}
	return accounts, nil
}

// EnsureAccount creates the account described by spec when missing. An
// existing account is returned untouched, whatever spec says.
func (r *Registry) EnsureAccount(ctx context.Context, spec Spec) (Account, error) {
	spec.Code = strings.TrimSpace(spec.Code)
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Code == "" || spec.Name == "" || !spec.Type.Valid() {
		return Account{}, fmt.Errorf("%w: code=%q type=%q", ErrInvalidSpec, spec.Code, spec.Type)
	}
	unlock := r.locks.Lock(spec.Code)
	defer unlock()

	now := r.now()
	acc, created, err := r.repo.Create(ctx, Account{
		Code:           spec.Code,
		Name:           spec.Name,
		Type:           spec.Type,
		Balance:        spec.OpeningBalance,
		OpeningBalance: spec.OpeningBalance,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Account{}, shared.NewStorageError("ensure account", err)
	}
	if created {
		r.logger.Info("account created", slog.String("code", acc.Code), slog.String("type", string(acc.Type)))
	}
	return acc, nil
}

// Seed ensures every spec in chart.
func (r *Registry) Seed(ctx context.Context, chart []Spec) error {
	for _, spec := range chart {
		if _, err := r.EnsureAccount(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDelta adds signed to the balance of code. It is the only entry point
// through which posting changes balances.
func (r *Registry) ApplyDelta(ctx context.Context, code string, signed decimal.Decimal) (Account, error) {
	return r.apply(ctx, code, signed, false)
}

// CompensateDelta undoes a previously applied delta. Unlike ApplyDelta it
// ignores the active flag so a rollback is never blocked by deactivation.
func (r *Registry) CompensateDelta(ctx context.Context, code string, signed decimal.Decimal) (Account, error) {
	return r.apply(ctx, code, signed.Neg(), true)
}

func (r *Registry) apply(ctx context.Context, code string, signed decimal.Decimal, compensate bool) (Account, error) {
	unlock := r.locks.Lock(code)
	acc, err := r.repo.Get(ctx, code)
	if err != nil {
		unlock()
		if errors.Is(err, shared.ErrAccountNotFound) {
			return Account{}, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, code)
		}
		return Account{}, shared.NewStorageError("read balance "+code, err)
	}
	if !acc.IsActive && !compensate {
		unlock()
		return Account{}, fmt.Errorf("%w: %s", shared.ErrAccountInactive, code)
	}
	now := r.now()
	updated, err := r.repo.AddBalance(ctx, code, signed, now)
	unlock()
	if err != nil {
		return Account{}, shared.NewStorageError("apply delta "+code, err)
	}
	r.notify(ctx, BalanceChange{
		Code:       updated.Code,
		Type:       updated.Type,
		Delta:      signed,
		Balance:    updated.Balance,
		Compensate: compensate,
		At:         now,
	})
	return updated, nil
}

// SetActive toggles whether new postings may reference code.
func (r *Registry) SetActive(ctx context.Context, code string, active bool) (Account, error) {
	unlock := r.locks.Lock(code)
	defer unlock()
	acc, err := r.repo.SetActive(ctx, code, active, r.now())
	if errors.Is(err, shared.ErrAccountNotFound) {
		return Account{}, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, code)
	}
	if err != nil {
		return Account{}, shared.NewStorageError("set active", err)
	}
	r.logger.Info("account status changed", slog.String("code", code), slog.Bool("active", active))
	return acc, nil
}

func (r *Registry) notify(ctx context.Context, change BalanceChange) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()
	for _, obs := range observers {
		obs(ctx, change)
	}
}

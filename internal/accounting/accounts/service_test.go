package accounts

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(NewMemoryRepository(), nil)
	require.NoError(t, reg.Seed(context.Background(), DefaultChart()))
	return reg
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	first, err := reg.EnsureAccount(ctx, Spec{Code: CodeCPPPayable, Name: "CPP Payable", Type: AccountTypeLiability})
	require.NoError(t, err)
	require.True(t, first.Balance.IsZero())
	require.True(t, first.IsActive)

	_, err = reg.ApplyDelta(ctx, CodeCPPPayable, decimal.NewFromInt(40))
	require.NoError(t, err)

	again, err := reg.EnsureAccount(ctx, Spec{Code: CodeCPPPayable, Name: "Renamed", Type: AccountTypeAsset})
	require.NoError(t, err)
	require.Equal(t, "CPP Payable", again.Name)
	require.Equal(t, AccountTypeLiability, again.Type)
	require.Equal(t, "40", again.Balance.String())
}

func TestEnsureAccountRejectsBadSpec(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.EnsureAccount(context.Background(), Spec{Code: "9999", Name: "Mystery", Type: "OTHER"})
	require.ErrorIs(t, err, ErrInvalidSpec)
}

func TestApplyDeltaErrors(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.ApplyDelta(ctx, "0000", decimal.NewFromInt(1))
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	_, err = reg.SetActive(ctx, CodeRent, false)
	require.NoError(t, err)
	_, err = reg.ApplyDelta(ctx, CodeRent, decimal.NewFromInt(1))
	require.ErrorIs(t, err, shared.ErrAccountInactive)

	acc, err := reg.CompensateDelta(ctx, CodeRent, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.Equal(t, "-5", acc.Balance.String())
}

func TestApplyDeltaEmitsBalanceChange(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	var (
		mu      sync.Mutex
		changes []BalanceChange
	)
	reg.Subscribe(func(_ context.Context, c BalanceChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	_, err := reg.ApplyDelta(ctx, CodeCash, decimal.RequireFromString("12.50"))
	require.NoError(t, err)

	require.Len(t, changes, 1)
	require.Equal(t, CodeCash, changes[0].Code)
	require.Equal(t, "12.5", changes[0].Balance.String())
	require.False(t, changes[0].Compensate)
}

func TestApplyDeltaConcurrentNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.ApplyDelta(ctx, CodeCash, decimal.NewFromInt(1))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := reg.GetAccount(ctx, CodeCash)
	require.NoError(t, err)
	require.Equal(t, "100", acc.Balance.String())
}

func TestSignedDeltaFollowsNormalSide(t *testing.T) {
	ten := decimal.NewFromInt(10)
	asset := Account{Type: AccountTypeAsset}
	revenue := Account{Type: AccountTypeRevenue}

	require.Equal(t, "10", asset.SignedDelta(ten, decimal.Zero).String())
	require.Equal(t, "-10", asset.SignedDelta(decimal.Zero, ten).String())
	require.Equal(t, "10", revenue.SignedDelta(decimal.Zero, ten).String())
	require.Equal(t, "-10", revenue.SignedDelta(ten, decimal.Zero).String())
}

package mappings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

func TestMemoryRepositoryResolvesDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DefaultMappings())

	m, err := repo.Get(ctx, "payroll", KeyPayrollEIPayable)
	require.NoError(t, err)
	require.Equal(t, accounts.CodeEIPayable, m.AccountCode)
	require.Equal(t, accounts.AccountTypeLiability, m.Spec().Type)

	_, err = repo.Get(ctx, ModuleAR, "ar.unknown")
	require.ErrorIs(t, err, shared.ErrMappingNotFound)

	_, err = repo.Get(ctx, "", KeyARCash)
	require.Error(t, err)
}

func TestMemoryRepositoryOverride(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DefaultMappings())
	repo.Put(AccountMapping{Module: ModuleAR, Key: KeyARRevenue, AccountCode: accounts.CodeServiceRevenue, AccountName: "Service Revenue", AccountType: accounts.AccountTypeRevenue})

	m, err := repo.Get(ctx, ModuleAR, KeyARRevenue)
	require.NoError(t, err)
	require.Equal(t, accounts.CodeServiceRevenue, m.AccountCode)
}

func TestDefaultMappingsAreWellFormed(t *testing.T) {
	for _, m := range DefaultMappings() {
		require.NotEmpty(t, m.AccountCode, m.Key)
		require.True(t, m.AccountType.Valid(), m.Key)
	}
}

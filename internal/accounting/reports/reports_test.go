package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleAccounts() []accounts.Account {
	acc := func(code, name string, typ accounts.AccountType, balance string) accounts.Account {
		return accounts.Account{Code: code, Name: name, Type: typ, Balance: d(balance), OpeningBalance: decimal.Zero, IsActive: true}
	}
	return []accounts.Account{
		acc("1000", "Cash", accounts.AccountTypeAsset, "1130"),
		acc("1100", "Accounts Receivable", accounts.AccountTypeAsset, "400"),
		acc("1300", "GST/HST Recoverable", accounts.AccountTypeAsset, "30"),
		acc("2000", "Accounts Payable", accounts.AccountTypeLiability, "230"),
		acc("2100", "GST/HST Payable", accounts.AccountTypeLiability, "130"),
		acc("3000", "Owner's Equity", accounts.AccountTypeEquity, "500"),
		acc("4000", "Sales Revenue", accounts.AccountTypeRevenue, "1400"),
		acc("5000", "Cost of Goods Sold", accounts.AccountTypeExpense, "800"),
		acc("5200", "Rent Expense", accounts.AccountTypeExpense, "-100"),
	}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(FromAccounts(sampleAccounts()))
	require.Len(t, tb.Groups, 9)
	require.Equal(t, "2360", tb.TotalDebit.String())
	require.Equal(t, "2360", tb.TotalCredit.String())
	require.True(t, tb.Balanced)

	var rent TrialBalanceAccount
	for _, g := range tb.Groups {
		for _, a := range g.Accounts {
			if a.Code == "5200" {
				rent = a
			}
		}
	}
	require.True(t, rent.Debit.IsZero())
	require.Equal(t, "100", rent.Credit.String())
}

func TestFromAccountsHidesEmptyInactive(t *testing.T) {
	list := []accounts.Account{
		{Code: "5300", Type: accounts.AccountTypeExpense, Balance: decimal.Zero, IsActive: false},
		{Code: "5400", Type: accounts.AccountTypeExpense, Balance: d("10"), IsActive: false},
	}
	balances := FromAccounts(list)
	require.Len(t, balances, 1)
	require.Equal(t, "5400", balances[0].Code)
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(FromAccounts(sampleAccounts()))
	require.Equal(t, "1400", pl.Revenue.Total.String())
	require.Equal(t, "700", pl.Expense.Total.String())
	require.Equal(t, "700", pl.NetIncome.String())
	require.Equal(t, "5000", pl.Expense.Accounts[0].Code)
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(FromAccounts(sampleAccounts()))
	require.Equal(t, "1560", bs.Assets.Total.String())
	require.Equal(t, "360", bs.Liabilities.Total.String())
	require.Equal(t, "500", bs.Equity.Total.String())
	require.Equal(t, "700", bs.CurrentEarnings.String())
	require.Equal(t, "1560", bs.TotalLiabilitiesAndEquity.String())
	require.True(t, bs.Balanced)
}

func TestBuildTaxSummary(t *testing.T) {
	tax := BuildTaxSummary(FromAccounts(sampleAccounts()))
	require.Equal(t, "130", tax.Collected.String())
	require.Equal(t, "30", tax.Paid.String())
	require.Equal(t, "100", tax.NetOwing.String())

	none := BuildTaxSummary(nil)
	require.True(t, none.NetOwing.IsZero())
}

type countingSource struct {
	calls atomic.Int32
	list  []accounts.Account
}

func (s *countingSource) List(context.Context) ([]accounts.Account, error) {
	s.calls.Add(1)
	return s.list, nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServiceCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{list: sampleAccounts()}
	svc := NewService(source, NewCache(newRedis(t), 0), nil)

	first, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	second, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, source.calls.Load())
	require.True(t, first.TotalDebit.Equal(second.TotalDebit))

	svc.EntryObserver()(ctx, journals.JournalEntry{Number: "JE-2024-001"}, true)
	_, err = svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, source.calls.Load())
}

func TestServiceWithoutCacheAlwaysBuilds(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{list: sampleAccounts()}
	svc := NewService(source, nil, nil)

	_, err := svc.ProfitAndLoss(ctx)
	require.NoError(t, err)
	_, err = svc.ProfitAndLoss(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, source.calls.Load())
	svc.EntryObserver()(ctx, journals.JournalEntry{Number: "JE-2024-001"}, true)
}

func TestWarmFillsEveryReport(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{list: sampleAccounts()}
	svc := NewService(source, NewCache(newRedis(t), 0), nil)

	require.NoError(t, svc.Warm(ctx))
	calls := source.calls.Load()
	require.GreaterOrEqual(t, calls, int32(1))
	for _, name := range []string{ReportTrialBalance, ReportProfitAndLoss, ReportBalanceSheet, ReportTaxSummary} {
		_, err := svc.Build(ctx, name)
		require.NoError(t, err)
	}
	require.Equal(t, calls, source.calls.Load())
}

func TestCacheListenForInvalidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newRedis(t)
	cache := NewCache(client, 0)

	versions, err := cache.ListenForInvalidation(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	ver := <-versions
	require.Greater(t, ver, int64(0))
}

func TestRewarmRebuildsAfterBump(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &countingSource{list: sampleAccounts()}
	cache := NewCache(newRedis(t), 0)
	svc := NewService(source, cache, nil)

	done := make(chan error, 1)
	go func() { done <- svc.Rewarm(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		_ = cache.Bump(ctx)
		return source.calls.Load() >= 4
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRewarmWithoutCacheReturns(t *testing.T) {
	svc := NewService(&countingSource{}, nil, nil)
	require.NoError(t, svc.Rewarm(context.Background(), time.Millisecond))
}

func TestHandler(t *testing.T) {
	svc := NewService(&countingSource{list: sampleAccounts()}, nil, nil)
	router := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tax-summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var tax TaxSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tax))
	require.Equal(t, "100", tax.NetOwing.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cash-flow", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostingBumpsCacheOncePerEntry(t *testing.T) {
	ctx := context.Background()
	registry := accounts.NewRegistry(accounts.NewMemoryRepository(), nil)
	require.NoError(t, registry.Seed(ctx, accounts.DefaultChart()))
	cache := NewCache(newRedis(t), 0)
	svc := NewService(registry, cache, nil)
	engine := journals.NewService(journals.NewMemoryRepository(), registry, journals.NewSequenceAllocator(), journals.ServiceConfig{
		Observers: []journals.EntryObserver{svc.EntryObserver()},
	})

	before, err := cache.Version(ctx)
	require.NoError(t, err)
	_, err = engine.PostJournal(ctx, journals.NewDraft(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "cash sale",
		journals.DebitLine(accounts.CodeCash, "", d("1130")),
		journals.CreditLine(accounts.CodeSalesRevenue, "", d("1000")),
		journals.CreditLine(accounts.CodeTaxPayable, "", d("130")),
	))
	require.NoError(t, err)
	after, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, "1130.00", tb.TotalDebit.StringFixed(2))
}

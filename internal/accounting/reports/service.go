package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

// Report names accepted by Service.Build.
const (
	ReportTrialBalance  = "trial-balance"
	ReportProfitAndLoss = "profit-loss"
	ReportBalanceSheet  = "balance-sheet"
	ReportTaxSummary    = "tax-summary"
)

// AccountSource lists the accounts reports are projected from.
type AccountSource interface {
	List(ctx context.Context) ([]accounts.Account, error)
}

// Service builds read-only projections of account balances.
type Service struct {
	source AccountSource
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewService wires the report service. cache may be nil.
func NewService(source AccountSource, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// EntryObserver invalidates cached reports once per journal entry that
// moved balances, whether it was stored or rolled back.
func (s *Service) EntryObserver() journals.EntryObserver {
	return func(ctx context.Context, entry journals.JournalEntry, _ bool) {
		if err := s.cache.Bump(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("report cache bump failed", slog.String("entry", entry.Number), slog.Any("error", err))
		}
	}
}

// TrialBalance returns the current trial balance.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var out TrialBalance
	err := s.fetch(ctx, ReportTrialBalance, &out, func(b []AccountBalance) any { return BuildTrialBalance(b) })
	return out, err
}

// ProfitAndLoss returns revenue, expense and net income.
func (s *Service) ProfitAndLoss(ctx context.Context) (ProfitAndLoss, error) {
	var out ProfitAndLoss
	err := s.fetch(ctx, ReportProfitAndLoss, &out, func(b []AccountBalance) any { return BuildProfitAndLoss(b) })
	return out, err
}

// BalanceSheet returns assets against liabilities and equity.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var out BalanceSheet
	err := s.fetch(ctx, ReportBalanceSheet, &out, func(b []AccountBalance) any { return BuildBalanceSheet(b) })
	return out, err
}

// TaxSummary returns sales tax collected, paid and owing.
func (s *Service) TaxSummary(ctx context.Context) (TaxSummary, error) {
	var out TaxSummary
	err := s.fetch(ctx, ReportTaxSummary, &out, func(b []AccountBalance) any { return BuildTaxSummary(b) })
	return out, err
}

// Build returns the named report.
func (s *Service) Build(ctx context.Context, name string) (any, error) {
	switch name {
	case ReportTrialBalance:
		return s.TrialBalance(ctx)
	case ReportProfitAndLoss:
		return s.ProfitAndLoss(ctx)
	case ReportBalanceSheet:
		return s.BalanceSheet(ctx)
	case ReportTaxSummary:
		return s.TaxSummary(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReport, name)
}

// Warm builds every report so the next reads hit the cache.
func (s *Service) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range []string{ReportTrialBalance, ReportProfitAndLoss, ReportBalanceSheet, ReportTaxSummary} {
		g.Go(func() error {
			_, err := s.Build(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Rewarm follows cache bumps from every process and rebuilds the reports,
// coalescing bumps that arrive within settle of each other. It blocks until
// ctx ends or the invalidation feed closes.
func (s *Service) Rewarm(ctx context.Context, settle time.Duration) error {
	bumps, err := s.cache.ListenForInvalidation(ctx)
	if err != nil {
		return fmt.Errorf("reports: listen for invalidation: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-bumps:
			if !ok {
				return nil
			}
		}
		timer := time.NewTimer(settle)
	drain:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case _, ok := <-bumps:
				if !ok {
					break drain
				}
			case <-timer.C:
				break drain
			}
		}
		timer.Stop()
		if err := s.Warm(ctx); err != nil {
			s.logger.Warn("report rewarm failed", slog.Any("error", err))
		}
	}
}

func (s *Service) fetch(ctx context.Context, name string, dest any, build func([]AccountBalance) any) error {
	key, err := s.cache.Key(ctx, name)
	if err != nil {
		return fmt.Errorf("reports: cache key: %w", err)
	}
	if hit, err := s.cache.Lookup(ctx, key, dest); err != nil || hit {
		return err
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		list, err := s.source.List(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(build(FromAccounts(list)))
		if err != nil {
			return nil, err
		}
		if err := s.cache.Store(ctx, key, raw); err != nil {
			s.logger.Warn("report cache write", slog.String("report", name), slog.Any("error", err))
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dest)
}

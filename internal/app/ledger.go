package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const journalSequencePrefix = "ledger:je:seq"

// LedgerParams groups the inputs for BuildLedger. Pool and Redis may be
// supplied by the caller; otherwise they are dialed from Config when the
// configured backends need them.
type LedgerParams struct {
	Config  *Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Pool    *pgxpool.Pool
	Redis   *redis.Client
}

// Ledger is the wired object graph shared by the API server and the worker.
type Ledger struct {
	Config   *Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Audit    journals.AuditPort
	Accounts *accounts.Registry
	Journals *journals.Service
	Mappings mappings.Repository
	Hooks    *integration.Hooks
	Reports  *reports.Service

	Stock       *inventory.Service
	Receivables *ar.Service
	Sales       *sales.Service
	Payroll     *payroll.Service
	Procurement *procurement.Service

	closers []func()
}

// BuildLedger wires stores, numbering, the posting engine, reports and the
// integration hooks according to Config.
func BuildLedger(ctx context.Context, params LedgerParams) (*Ledger, error) {
	cfg := params.Config
	if cfg == nil {
		cfg = &Config{Store: StoreMemory, Numbering: NumberingMemory}
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{Config: cfg, Logger: logger, Metrics: params.Metrics, Pool: params.Pool, Redis: params.Redis}

	if err := l.connect(ctx); err != nil {
		l.Close()
		return nil, err
	}
	if err := l.wire(ctx); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) connect(ctx context.Context) error {
	cfg := l.Config
	if cfg.Store == StorePostgres && l.Pool == nil {
		pool, err := db.New(ctx, db.PoolOptions{
			DSN:            cfg.PGDSN,
			MaxConns:       cfg.PGMaxConns,
			ConnectTimeout: cfg.PGConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("app: connect postgres: %w", err)
		}
		l.Pool = pool
		l.closers = append(l.closers, pool.Close)
	}
	if l.Pool != nil {
		if err := db.ApplySchema(ctx, l.Pool, accounts.Schema, journals.Schema, mappings.Schema, shared.AuditSchema); err != nil {
			return err
		}
	}

	if l.Redis == nil && cfg.RedisEnabled() {
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
		switch {
		case err == nil:
			l.Redis = client
			l.closers = append(l.closers, func() {
				if err := client.Close(); err != nil {
					l.Logger.Warn("redis close", slog.Any("error", err))
				}
			})
		case cfg.Numbering == NumberingRedis:
			return fmt.Errorf("app: connect redis: %w", err)
		default:
			l.Logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		}
	}
	if cfg.Numbering == NumberingRedis && l.Redis == nil {
		return errors.New("app: redis numbering needs a redis client")
	}
	return nil
}

func (l *Ledger) wire(ctx context.Context) error {
	cfg, logger := l.Config, l.Logger

	var (
		accountRepo accounts.Repository
		journalRepo journals.Repository
	)
	if l.Pool != nil {
		accountRepo = accounts.NewRepository(l.Pool)
		journalRepo = journals.NewRepository(l.Pool)
		l.Mappings = mappings.NewRepository(l.Pool)
		l.Audit = shared.NewAuditLogger(l.Pool)
	} else {
		accountRepo = accounts.NewMemoryRepository()
		journalRepo = journals.NewMemoryRepository()
		l.Mappings = mappings.NewMemoryRepository(mappings.DefaultMappings())
		l.Audit = shared.NewMemoryAuditLog()
	}

	l.Accounts = accounts.NewRegistry(accountRepo, logger.With(slog.String("component", "accounts")))
	if cfg.SeedChart {
		if err := l.Accounts.Seed(ctx, accounts.DefaultChart()); err != nil {
			return fmt.Errorf("app: seed chart: %w", err)
		}
	}

	numbers, err := l.numbering(ctx, journalRepo)
	if err != nil {
		return err
	}

	l.Reports = reports.NewService(l.Accounts, reports.NewCache(l.Redis, cfg.ReportCacheTTL), logger.With(slog.String("component", "reports")))

	engineCfg := journals.ServiceConfig{
		Audit:     l.Audit,
		Logger:    logger.With(slog.String("component", "journals")),
		Observers: []journals.EntryObserver{l.Reports.EntryObserver()},
	}
	if l.Metrics != nil {
		engineCfg.Metrics = l.Metrics
		l.Accounts.Subscribe(l.Metrics.BalanceObserver())
	}
	l.Journals = journals.NewService(journalRepo, l.Accounts, numbers, engineCfg)

	l.Hooks = integration.NewHooks(l.Journals, l.Accounts, l.Mappings, logger.With(slog.String("component", "integration")))

	l.Stock = inventory.NewService(inventory.NewMemoryRepository(), logger)
	l.Receivables = ar.NewService(ar.NewMemoryRepository(), l.Hooks, logger)
	l.Sales = sales.NewService(sales.NewMemoryRepository(), l.Stock, l.Hooks, logger)
	l.Payroll = payroll.NewService(payroll.NewMemoryRepository(), l.Hooks, logger)
	l.Procurement = procurement.NewService(procurement.NewMemoryRepository(), l.Stock, l.Hooks, logger)
	return nil
}

// numbering picks the entry-number allocator and continues after the
// highest number already stored.
func (l *Ledger) numbering(ctx context.Context, repo journals.Repository) (journals.NumberAllocator, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load journal for numbering: %w", err)
	}
	if l.Config.Numbering == NumberingRedis {
		alloc := journals.NewRedisAllocator(l.Redis, journalSequencePrefix)
		if err := alloc.SeedFromEntries(ctx, existing); err != nil {
			return nil, fmt.Errorf("app: seed redis numbering: %w", err)
		}
		return alloc, nil
	}
	alloc := journals.NewSequenceAllocator()
	if err := alloc.SeedFromEntries(existing); err != nil {
		return nil, fmt.Errorf("app: seed numbering: %w", err)
	}
	return alloc, nil
}

// Close releases connections opened by BuildLedger. Caller-supplied pools
// and clients are left open.
func (l *Ledger) Close() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		l.closers[i]()
	}
	l.closers = nil
}

package mappings

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
}

var errKeyRequired = errors.New("accounting: module and key required")

// Schema is the DDL backing the PostgreSQL repository.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_account_mappings (
	module TEXT NOT NULL,
	key TEXT NOT NULL,
	account_code TEXT NOT NULL,
	account_name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (module, key)
);`

type repository struct {
	db       *pgxpool.Pool
	fallback *MemoryRepository
}

// NewRepository returns a PostgreSQL backed Repository. Keys without a row
// fall back to DefaultMappings.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db, fallback: NewMemoryRepository(DefaultMappings())}
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errKeyRequired
	}
	normalized := strings.ToUpper(module)
	var (
		mapping AccountMapping
		typ     string
	)
	err := r.db.QueryRow(ctx, `SELECT module, key, account_code, account_name, account_type, created_at, updated_at
FROM ledger_account_mappings WHERE module=$1 AND key=$2`, normalized, key).
		Scan(&mapping.Module, &mapping.Key, &mapping.AccountCode, &mapping.AccountName, &typ, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.fallback.Get(ctx, module, key)
		}
		return AccountMapping{}, err
	}
	mapping.AccountType = accounts.AccountType(typ)
	return mapping, nil
}

// MemoryRepository serves mappings from a fixed table.
type MemoryRepository struct {
	mu       sync.RWMutex
	mappings map[string]AccountMapping
}

// NewMemoryRepository indexes mappings by module and key.
func NewMemoryRepository(mappings []AccountMapping) *MemoryRepository {
	r := &MemoryRepository{mappings: make(map[string]AccountMapping, len(mappings))}
	for _, m := range mappings {
		r.Put(m)
	}
	return r
}

// Put adds or replaces a mapping.
func (r *MemoryRepository) Put(m AccountMapping) {
	m.Module = strings.ToUpper(m.Module)
	r.mu.Lock()
	r.mappings[m.Module+"/"+m.Key] = m
	r.mu.Unlock()
}

func (r *MemoryRepository) Get(_ context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errKeyRequired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[strings.ToUpper(module)+"/"+key]
	if !ok {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	return m, nil
}

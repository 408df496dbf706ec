package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Repository persists accounts. Implementations must apply AddBalance
// atomically for a single account.
type Repository interface {
	Get(ctx context.Context, code string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	// Create inserts acc unless the code exists; created reports which happened.
	Create(ctx context.Context, acc Account) (stored Account, created bool, err error)
	AddBalance(ctx context.Context, code string, delta decimal.Decimal, at time.Time) (Account, error)
	SetActive(ctx context.Context, code string, active bool, at time.Time) (Account, error)
}

// Schema is the DDL backing the PostgreSQL repository.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE')),
	balance NUMERIC(18,2) NOT NULL DEFAULT 0,
	opening_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

const accountColumns = `code, name, type, balance::text, opening_balance::text, is_active, created_at, updated_at`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, code string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_accounts WHERE code = $1`, code)
	return scanAccount(row)
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM ledger_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Create(ctx context.Context, acc Account) (Account, bool, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO ledger_accounts (code, name, type, balance, opening_balance, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4::numeric, $4::numeric, $5, $6, $6)
ON CONFLICT (code) DO NOTHING
RETURNING `+accountColumns, acc.Code, acc.Name, string(acc.Type), acc.OpeningBalance.String(), acc.IsActive, acc.CreatedAt)
	stored, err := scanAccount(row)
	if errors.Is(err, shared.ErrAccountNotFound) {
		existing, getErr := r.Get(ctx, acc.Code)
		return existing, false, getErr
	}
	if err != nil {
		return Account{}, false, err
	}
	return stored, true, nil
}

func (r *repository) AddBalance(ctx context.Context, code string, delta decimal.Decimal, at time.Time) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE ledger_accounts SET balance = balance + $2::numeric, updated_at = $3
WHERE code = $1 RETURNING `+accountColumns, code, delta.String(), at)
	return scanAccount(row)
}

func (r *repository) SetActive(ctx context.Context, code string, active bool, at time.Time) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE ledger_accounts SET is_active = $2, updated_at = $3
WHERE code = $1 RETURNING `+accountColumns, code, active, at)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a                Account
		typ              string
		balance, opening string
	)
	err := row.Scan(&a.Code, &a.Name, &typ, &balance, &opening, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	a.Type = AccountType(typ)
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, fmt.Errorf("accounts: parse balance %s: %w", a.Code, err)
	}
	if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return Account{}, fmt.Errorf("accounts: parse opening balance %s: %w", a.Code, err)
	}
	return a, nil
}

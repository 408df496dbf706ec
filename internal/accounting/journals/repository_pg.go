package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Schema is the DDL backing the PostgreSQL repository. It expects the
// accounts schema to be applied first.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_journal_entries (
	id UUID PRIMARY KEY,
	number TEXT NOT NULL,
	date DATE NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('POSTED','VOID')),
	source_module TEXT NOT NULL DEFAULT '',
	source_ref TEXT NOT NULL DEFAULT '',
	reversal_of UUID REFERENCES ledger_journal_entries(id),
	void_reason TEXT NOT NULL DEFAULT '',
	posted_by BIGINT NOT NULL DEFAULT 0,
	posted_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT uq_journal_number UNIQUE (number)
);
CREATE TABLE IF NOT EXISTS ledger_journal_lines (
	entry_id UUID NOT NULL REFERENCES ledger_journal_entries(id),
	line_no INT NOT NULL,
	account_code TEXT NOT NULL REFERENCES ledger_accounts(code),
	description TEXT NOT NULL DEFAULT '',
	debit NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (debit >= 0),
	credit NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (credit >= 0),
	PRIMARY KEY (entry_id, line_no)
);`

const entryColumns = `id, number, date, description, status, source_module, source_ref, reversal_of, void_reason, posted_by, posted_at, created_at`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Insert(ctx context.Context, entry JournalEntry) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return insertEntry(ctx, tx, entry)
	})
}

func (r *repository) InsertReversal(ctx context.Context, reversal JournalEntry, originalID uuid.UUID, reason string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE ledger_journal_entries SET status = 'VOID', void_reason = $2
WHERE id = $1 AND status = 'POSTED'`, originalID, reason)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_journal_entries WHERE id = $1)`, originalID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return shared.ErrJournalNotFound
			}
			return shared.ErrAlreadyVoid
		}
		return insertEntry(ctx, tx, reversal)
	})
}

func insertEntry(ctx context.Context, tx pgx.Tx, e JournalEntry) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_journal_entries (`+entryColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Number, e.Date, e.Description, string(e.Status), e.SourceModule, e.SourceRef,
		e.ReversalOf, e.VoidReason, e.PostedBy, e.PostedAt, e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_number" {
			return fmt.Errorf("journals: duplicate entry number %s: %w", e.Number, err)
		}
		return err
	}
	batch := &pgx.Batch{}
	for i, l := range e.Lines {
		batch.Queue(`INSERT INTO ledger_journal_lines (entry_id, line_no, account_code, description, debit, credit)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric)`, e.ID, i, l.AccountCode, l.Description, l.Debit.String(), l.Credit.String())
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return r.getOne(ctx, `SELECT `+entryColumns+` FROM ledger_journal_entries WHERE id = $1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	return r.getOne(ctx, `SELECT `+entryColumns+` FROM ledger_journal_entries WHERE number = $1`, number)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := r.loadLines(ctx, []uuid.UUID{e.ID})
	if err != nil {
		return JournalEntry{}, err
	}
	e.Lines = lines[e.ID]
	return e, nil
}

func (r *repository) List(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_journal_entries ORDER BY created_at, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var (
		entries []JournalEntry
		ids     []uuid.UUID
	)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Lines = lines[entries[i].ID]
	}
	return entries, nil
}

func (r *repository) loadLines(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]JournalLine, error) {
	out := make(map[uuid.UUID][]JournalLine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT entry_id, account_code, description, debit::text, credit::text
FROM ledger_journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_no`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			entryID       uuid.UUID
			l             JournalLine
			debit, credit string
		)
		if err := rows.Scan(&entryID, &l.AccountCode, &l.Description, &debit, &credit); err != nil {
			return nil, err
		}
		if l.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if l.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		out[entryID] = append(out[entryID], l)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e      JournalEntry
		status string
	)
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &status, &e.SourceModule, &e.SourceRef,
		&e.ReversalOf, &e.VoidReason, &e.PostedBy, &e.PostedAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	if err != nil {
		return JournalEntry{}, err
	}
	e.Status = JournalStatus(status)
	return e, nil
}

package journals

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists journal entries. InsertReversal stores the reversal and
// flips the original from POSTED to VOID as a single unit; when the original
// is no longer POSTED it must return shared.ErrAlreadyVoid and store nothing.
type Repository interface {
	Insert(ctx context.Context, entry JournalEntry) error
	InsertReversal(ctx context.Context, reversal JournalEntry, originalID uuid.UUID, reason string) error
	Get(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	GetByNumber(ctx context.Context, number string) (JournalEntry, error)
	List(ctx context.Context) ([]JournalEntry, error)
}

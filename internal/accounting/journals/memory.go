package journals

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// MemoryRepository keeps entries in insertion order.
type MemoryRepository struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]JournalEntry
	byNumber map[string]uuid.UUID
	order    []uuid.UUID
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries:  make(map[uuid.UUID]JournalEntry),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, entry JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(entry)
}

func (r *MemoryRepository) insertLocked(entry JournalEntry) error {
	if _, ok := r.entries[entry.ID]; ok {
		return fmt.Errorf("journals: duplicate entry id %s", entry.ID)
	}
	if _, ok := r.byNumber[entry.Number]; ok {
		return fmt.Errorf("journals: duplicate entry number %s", entry.Number)
	}
	r.entries[entry.ID] = entry.clone()
	r.byNumber[entry.Number] = entry.ID
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *MemoryRepository) InsertReversal(_ context.Context, reversal JournalEntry, originalID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	original, ok := r.entries[originalID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	if original.Status != JournalStatusPosted {
		return shared.ErrAlreadyVoid
	}
	if err := r.insertLocked(reversal); err != nil {
		return err
	}
	original.Status = JournalStatusVoid
	original.VoidReason = reason
	r.entries[originalID] = original
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return e.clone(), nil
}

func (r *MemoryRepository) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	r.mu.RLock()
	id, ok := r.byNumber[number]
	r.mu.RUnlock()
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return r.Get(ctx, id)
}

func (r *MemoryRepository) List(_ context.Context) ([]JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JournalEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].clone())
	}
	return out, nil
}

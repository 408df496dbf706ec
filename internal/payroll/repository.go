package payroll

import (
	"context"
	"sort"
	"sync"
)

// RepositoryPort persists pay runs and remittances.
type RepositoryPort interface {
	CreatePayRun(ctx context.Context, run PayRun) (PayRun, error)
	GetPayRun(ctx context.Context, id int64) (PayRun, error)
	UpdatePayRun(ctx context.Context, run PayRun) error
	ListPayRuns(ctx context.Context) ([]PayRun, error)
	CreateRemittance(ctx context.Context, r Remittance) error
	ListRemittances(ctx context.Context) ([]Remittance, error)
}

// MemoryRepository keeps payroll records in process memory.
type MemoryRepository struct {
	mu          sync.RWMutex
	runs        map[int64]PayRun
	remittances []Remittance
	nextID      int64
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[int64]PayRun)}
}

func (r *MemoryRepository) CreatePayRun(_ context.Context, run PayRun) (PayRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	run.ID = r.nextID
	run.Stubs = append([]PayStub(nil), run.Stubs...)
	r.runs[run.ID] = run
	return run, nil
}

func (r *MemoryRepository) GetPayRun(_ context.Context, id int64) (PayRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return PayRun{}, ErrPayRunNotFound
	}
	run.Stubs = append([]PayStub(nil), run.Stubs...)
	return run, nil
}

func (r *MemoryRepository) UpdatePayRun(_ context.Context, run PayRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return ErrPayRunNotFound
	}
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepository) ListPayRuns(_ context.Context) ([]PayRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PayRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateRemittance(_ context.Context, rem Remittance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remittances = append(r.remittances, rem)
	return nil
}

func (r *MemoryRepository) ListRemittances(_ context.Context) ([]Remittance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Remittance(nil), r.remittances...), nil
}

package journals

import (
	"context"
	"fmt"
	"sync"
)

// NumberAllocator hands out human readable entry numbers, strictly
// increasing per calendar year. Gaps are allowed, duplicates are not.
type NumberAllocator interface {
	Next(ctx context.Context, year int) (string, error)
}

// FormatNumber renders JE-<year>-<seq>, zero padded to three digits.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("JE-%d-%03d", year, seq)
}

// ParseNumber is the inverse of FormatNumber.
func ParseNumber(number string) (year int, seq int64, err error) {
	if _, err = fmt.Sscanf(number, "JE-%d-%d", &year, &seq); err != nil {
		return 0, 0, fmt.Errorf("journals: parse entry number %q: %w", number, err)
	}
	return year, seq, nil
}

// SequenceAllocator keeps per-year counters in process memory.
type SequenceAllocator struct {
	mu   sync.Mutex
	last map[int]int64
}

// NewSequenceAllocator returns an allocator starting at 1 for every year.
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{last: make(map[int]int64)}
}

// Next reserves the following number for year.
func (a *SequenceAllocator) Next(_ context.Context, year int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[year]++
	return FormatNumber(year, a.last[year]), nil
}

// Seed raises the counter of year to at least last.
func (a *SequenceAllocator) Seed(year int, last int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last[year] < last {
		a.last[year] = last
	}
}

// SeedFromEntries resumes numbering after the highest stored number of each year.
func (a *SequenceAllocator) SeedFromEntries(entries []JournalEntry) error {
	for _, e := range entries {
		year, seq, err := ParseNumber(e.Number)
		if err != nil {
			return err
		}
		a.Seed(year, seq)
	}
	return nil
}

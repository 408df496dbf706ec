package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Service owns stock levels. Multi-line changes are all-or-nothing.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService builds the stock service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// SaveProduct creates or updates a product.
func (s *Service) SaveProduct(ctx context.Context, p Product) (Product, error) {
	if p.Quantity < 0 || p.CostPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: negative quantity or cost", ErrInvalidQuantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.SaveProduct(ctx, p)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CheckAvailability lists the lines that exceed stock on hand.
func (s *Service) CheckAvailability(ctx context.Context, lines []StockLine) ([]Shortage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, shortages, err := s.load(ctx, lines)
	return shortages, err
}

// Reduce removes stock for every line or, on any shortage, for none. It
// returns the products as they were before the change.
func (s *Service) Reduce(ctx context.Context, lines []StockLine) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products, shortages, err := s.load(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, &ShortageError{Shortages: shortages}
	}
	if err := s.adjust(ctx, products, lines, -1); err != nil {
		return nil, err
	}
	return products, nil
}

// Restore puts back stock removed by Reduce.
func (s *Service) Restore(ctx context.Context, lines []StockLine) error {
	return s.Receive(ctx, lines)
}

// Receive adds stock for every line.
func (s *Service) Receive(ctx context.Context, lines []StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	products, _, err := s.load(ctx, lines)
	if err != nil {
		return err
	}
	return s.adjust(ctx, products, lines, 1)
}

func (s *Service) load(ctx context.Context, lines []StockLine) ([]Product, []Shortage, error) {
	products := make([]Product, len(lines))
	requested := make(map[int64]int64, len(lines))
	var shortages []Shortage
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, line.ProductID)
		}
		p, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("inventory: product %d: %w", line.ProductID, err)
		}
		products[i] = p
		requested[p.ID] += line.Quantity
		if requested[p.ID] > p.Quantity {
			shortages = append(shortages, Shortage{ProductID: p.ID, SKU: p.SKU, Requested: requested[p.ID], Available: p.Quantity})
		}
	}
	return products, shortages, nil
}

// adjust applies sign*quantity per line, undoing earlier lines on failure.
func (s *Service) adjust(ctx context.Context, products []Product, lines []StockLine, sign int64) error {
	current := make(map[int64]Product, len(products))
	for _, p := range products {
		current[p.ID] = p
	}
	var done []Product
	for _, line := range lines {
		p := current[line.ProductID]
		before := p
		p.Quantity += sign * line.Quantity
		if _, err := s.repo.SaveProduct(ctx, p); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				if _, undoErr := s.repo.SaveProduct(ctx, done[i]); undoErr != nil {
					err = errors.Join(err, undoErr)
				}
			}
			return fmt.Errorf("inventory: save product %d: %w", p.ID, err)
		}
		done = append(done, before)
		current[p.ID] = p
	}
	s.logger.Debug("stock adjusted", slog.Int("lines", len(lines)), slog.Int64("sign", sign))
	return nil
}

package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrInsufficientStock indicates a reduction larger than stock on hand.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
)

// Product is a stocked item valued at CostPrice per unit.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	CostPrice decimal.Decimal
	Quantity  int64
}

// StockLine requests a quantity change for one product.
type StockLine struct {
	ProductID int64
	Quantity  int64
}

// Shortage describes one line that cannot be fulfilled.
type Shortage struct {
	ProductID int64
	SKU       string
	Requested int64
	Available int64
}

// ShortageError lists every shortage of a rejected reduction.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("%s requested %d available %d", s.SKU, s.Requested, s.Available)
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

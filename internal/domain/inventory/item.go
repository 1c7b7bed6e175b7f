package inventory

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: item not found")
	ErrConflict          = errors.New("inventory: sku code already exists")
	ErrInvalidSKU        = errors.New("inventory: sku code is required")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Item is a stock-keeping unit. Quantity fields are pointers because the
// upstream feeds omit them; readers treat nil as zero.
type Item struct {
	ID                string
	SKUCode           string
	Name              string
	QuantityAvailable *int
	QuantityReserved  *int
	ReorderLevel      *int
	Location          string
	ExpiryDate        *time.Time
}

func NewItem(id, skuCode, name string) (*Item, error) {
	if strings.TrimSpace(skuCode) == "" {
		return nil, ErrInvalidSKU
	}
	return &Item{ID: id, SKUCode: skuCode, Name: name}, nil
}

// Available returns the stock on hand with nil treated as zero.
func (i *Item) Available() int { return deref(i.QuantityAvailable) }

func (i *Item) Reserved() int { return deref(i.QuantityReserved) }

func (i *Item) Reorder() int { return deref(i.ReorderLevel) }

// Deduct commits available-quantity only when enough stock is on hand.
// It never partially commits.
func (i *Item) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	available := i.Available()
	if available < quantity {
		return ErrInsufficientStock
	}
	remaining := available - quantity
	i.QuantityAvailable = &remaining
	return nil
}

// BelowReorder reports whether the current stock is strictly under the
// reorder threshold.
func (i *Item) BelowReorder() bool { return i.Available() < i.Reorder() }

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	clone.QuantityAvailable = cloneInt(i.QuantityAvailable)
	clone.QuantityReserved = cloneInt(i.QuantityReserved)
	clone.ReorderLevel = cloneInt(i.ReorderLevel)
	if i.ExpiryDate != nil {
		t := *i.ExpiryDate
		clone.ExpiryDate = &t
	}
	return &clone
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

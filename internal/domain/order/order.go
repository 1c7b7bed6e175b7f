package order

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrInvalidSKU      = errors.New("order: sku code is required")
	ErrInvalidQuantity = errors.New("order: quantity must be at least one")
	ErrInvalidPlacedBy = errors.New("order: placed_by is required")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// Order is the saga's record. It is written exactly twice per placement:
// once as PENDING before any downstream call, once with a terminal status.
type Order struct {
	ID       string
	SKUCode  string
	Quantity int
	Status   Status
	PlacedBy string
	PlacedAt time.Time
}

func New(id, skuCode string, quantity int, placedBy string) (*Order, error) {
	if strings.TrimSpace(skuCode) == "" {
		return nil, ErrInvalidSKU
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(placedBy) == "" {
		return nil, ErrInvalidPlacedBy
	}

	return &Order{
		ID:       id,
		SKUCode:  skuCode,
		Quantity: quantity,
		Status:   StatusPending,
		PlacedBy: placedBy,
		PlacedAt: time.Now().UTC(),
	}, nil
}

// MarkConfirmed and MarkFailed are the only transitions out of PENDING;
// terminal statuses are never reversed.
func (o *Order) MarkConfirmed() { o.Status = StatusConfirmed }

func (o *Order) MarkFailed() { o.Status = StatusFailed }

func (o *Order) Terminal() bool {
	return o.Status == StatusConfirmed || o.Status == StatusFailed
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

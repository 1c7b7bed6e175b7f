package inventory

import "context"

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Item, error)
	FindBySKU(ctx context.Context, skuCode string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	// DeductBySKU atomically checks and decrements available stock for one
	// SKU. Implementations must serialize concurrent deductions against the
	// same SKU so two callers never observe the same available amount and
	// both succeed. Returns the item after the deduction, ErrNotFound for an
	// unknown SKU, ErrInsufficientStock when available < quantity.
	DeductBySKU(ctx context.Context, skuCode string, quantity int) (*Item, error)
}

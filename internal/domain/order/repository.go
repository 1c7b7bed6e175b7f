package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	Delete(ctx context.Context, id string) error
	// List returns one page sorted by PlacedAt descending, plus the total count.
	List(ctx context.Context, offset, limit int) ([]*Order, int, error)
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/synexstock/orderflow/internal/domain/order"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, sku_code, quantity, status, placed_by, placed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.SKUCode, order.Quantity, order.Status, order.PlacedBy, order.PlacedAt,
	)
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET sku_code = ?, quantity = ?, status = ?, placed_by = ?
		WHERE id = ?`,
		order.SKUCode, order.Quantity, order.Status, order.PlacedBy, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, findErr := r.FindByID(ctx, order.ID); errors.Is(findErr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku_code, quantity, status, placed_by, placed_at
		FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.SKUCode, &order.Quantity, &order.Status, &order.PlacedBy, &order.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, offset, limit int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sku_code, quantity, status, placed_by, placed_at
		FROM orders ORDER BY placed_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.SKUCode, &order.Quantity, &order.Status, &order.PlacedBy, &order.PlacedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	return orders, total, rows.Err()
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	domain "github.com/synexstock/orderflow/internal/domain/inventory"
)

const mysqlDuplicateEntry = 1062

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, item *domain.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_items
			(id, sku_code, name, quantity_available, quantity_reserved, reorder_level, location, expiry_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SKUCode, item.Name,
		item.QuantityAvailable, item.QuantityReserved, item.ReorderLevel,
		item.Location, item.ExpiryDate,
	)
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert stock item: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, item *domain.Item) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_items
		SET sku_code = ?, name = ?, quantity_available = ?, quantity_reserved = ?,
			reorder_level = ?, location = ?, expiry_date = ?
		WHERE id = ?`,
		item.SKUCode, item.Name,
		item.QuantityAvailable, item.QuantityReserved, item.ReorderLevel,
		item.Location, item.ExpiryDate, item.ID,
	)
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update stock item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Zero rows can also mean an identical overwrite; treat a missing id
		// as the only not-found signal.
		if _, findErr := r.FindByID(ctx, item.ID); errors.Is(findErr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete stock item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *InventoryRepository) FindBySKU(ctx context.Context, skuCode string) (*domain.Item, error) {
	return r.findOne(ctx, `WHERE sku_code = ?`, skuCode)
}

func (r *InventoryRepository) findOne(ctx context.Context, where string, arg any) (*domain.Item, error) {
	var item domain.Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku_code, name, quantity_available, quantity_reserved, reorder_level, location, expiry_date
		FROM stock_items `+where, arg,
	).Scan(
		&item.ID, &item.SKUCode, &item.Name,
		&item.QuantityAvailable, &item.QuantityReserved, &item.ReorderLevel,
		&item.Location, &item.ExpiryDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock item: %w", err)
	}
	return &item, nil
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sku_code, name, quantity_available, quantity_reserved, reorder_level, location, expiry_date
		FROM stock_items ORDER BY sku_code`)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID, &item.SKUCode, &item.Name,
			&item.QuantityAvailable, &item.QuantityReserved, &item.ReorderLevel,
			&item.Location, &item.ExpiryDate,
		); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// DeductBySKU relies on a conditional UPDATE so the check and the
// decrement are one atomic statement; concurrent deductions against the
// same SKU serialize on the row lock.
func (r *InventoryRepository) DeductBySKU(ctx context.Context, skuCode string, quantity int) (*domain.Item, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_items
		SET quantity_available = quantity_available - ?
		WHERE sku_code = ? AND quantity_available >= ?`,
		quantity, skuCode, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("deduct stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, findErr := r.FindBySKU(ctx, skuCode); errors.Is(findErr, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrInsufficientStock
	}
	return r.FindBySKU(ctx, skuCode)
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

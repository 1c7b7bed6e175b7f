package memory

import (
	"context"
	"sync"

	domain "github.com/synexstock/orderflow/internal/domain/inventory"
)

// InventoryRepository keeps stock items in a mutex-guarded map. The write
// lock makes DeductBySKU the per-SKU serialization point the ledger
// requires: the check and the decrement happen under one critical section.
type InventoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Item
	bySKU map[string]string
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		byID:  make(map[string]*domain.Item),
		bySKU: make(map[string]string),
	}
}

func (r *InventoryRepository) Create(ctx context.Context, item *domain.Item) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySKU[item.SKUCode]; exists {
		return domain.ErrConflict
	}
	r.byID[item.ID] = item.Clone()
	r.bySKU[item.SKUCode] = item.ID
	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if item.SKUCode != existing.SKUCode {
		if _, taken := r.bySKU[item.SKUCode]; taken {
			return domain.ErrConflict
		}
		delete(r.bySKU, existing.SKUCode)
		r.bySKU[item.SKUCode] = item.ID
	}
	r.byID[item.ID] = item.Clone()
	return nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.bySKU, item.SKUCode)
	delete(r.byID, id)
	return nil
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *InventoryRepository) FindBySKU(ctx context.Context, skuCode string) (*domain.Item, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySKU[skuCode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Item, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.Item, 0, len(r.byID))
	for _, item := range r.byID {
		items = append(items, item.Clone())
	}
	return items, nil
}

func (r *InventoryRepository) DeductBySKU(ctx context.Context, skuCode string, quantity int) (*domain.Item, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySKU[skuCode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	item := r.byID[id]
	if err := item.Deduct(quantity); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

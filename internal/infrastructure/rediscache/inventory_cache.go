package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	domain "github.com/synexstock/orderflow/internal/domain/inventory"
	"go.uber.org/zap"
)

const (
	skuKeyPrefix = "inventory:sku:"
	listKey      = "inventory:all"
	cacheTTL     = 5 * time.Minute
)

// InventoryCache serves the inventory read path from Redis. Writes to the
// ledger invalidate both the per-SKU key and the all-items key before the
// write call returns, so the next read observes the new state. Cache
// errors degrade to a miss; they never fail the read.
type InventoryCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewInventoryCache(client *redis.Client, logger *zap.Logger) *InventoryCache {
	return &InventoryCache{
		client: client,
		log:    logger.With(zap.String("component", "inventory_cache")),
	}
}

func (c *InventoryCache) GetBySKU(ctx context.Context, skuCode string) (*domain.Item, bool) {
	raw, err := c.client.Get(ctx, skuKeyPrefix+skuCode).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache_get_failed", zap.String("sku_code", skuCode), zap.Error(err))
		}
		return nil, false
	}
	var item domain.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		c.log.Warn("cache_decode_failed", zap.String("sku_code", skuCode), zap.Error(err))
		return nil, false
	}
	return &item, true
}

func (c *InventoryCache) SetBySKU(ctx context.Context, item *domain.Item) {
	raw, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, skuKeyPrefix+item.SKUCode, raw, cacheTTL).Err(); err != nil {
		c.log.Warn("cache_set_failed", zap.String("sku_code", item.SKUCode), zap.Error(err))
	}
}

func (c *InventoryCache) GetList(ctx context.Context) ([]*domain.Item, bool) {
	raw, err := c.client.Get(ctx, listKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache_get_failed", zap.String("key", listKey), zap.Error(err))
		}
		return nil, false
	}
	var items []*domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (c *InventoryCache) SetList(ctx context.Context, items []*domain.Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listKey, raw, cacheTTL).Err(); err != nil {
		c.log.Warn("cache_set_failed", zap.String("key", listKey), zap.Error(err))
	}
}

// Invalidate drops the stale keys synchronously with the ledger write.
func (c *InventoryCache) Invalidate(ctx context.Context, skuCode string) {
	if err := c.client.Del(ctx, skuKeyPrefix+skuCode, listKey).Err(); err != nil {
		c.log.Warn("cache_invalidate_failed", zap.String("sku_code", skuCode), zap.Error(err))
	}
}

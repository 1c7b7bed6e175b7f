package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	domain "github.com/synexstock/orderflow/internal/domain/inventory"
	domnotif "github.com/synexstock/orderflow/internal/domain/notification"
	"github.com/synexstock/orderflow/internal/pkg/logging"
	"go.uber.org/zap"
)

const alertTimeout = 3 * time.Second

// Cache is an optional read-through cache for the list and by-SKU read
// paths. Invalidation is synchronous with every write; reads repopulate
// lazily.
type Cache interface {
	GetBySKU(ctx context.Context, skuCode string) (*domain.Item, bool)
	SetBySKU(ctx context.Context, item *domain.Item)
	GetList(ctx context.Context) ([]*domain.Item, bool)
	SetList(ctx context.Context, items []*domain.Item)
	Invalidate(ctx context.Context, skuCode string)
}

// AlertPublisher carries low-stock alerts to the notification queue.
type AlertPublisher interface {
	PublishLowStock(ctx context.Context, alert domnotif.LowStockAlert) error
}

type IDGenerator interface {
	NewID() string
}

// Service is the stock ledger. It owns all quantity mutations; no other
// component writes stock directly.
type Service struct {
	repo       domain.Repository
	cache      Cache
	alerts     AlertPublisher
	idGen      IDGenerator
	alertEmail string
	deductions *prometheus.CounterVec
	lowStock   prometheus.Counter
}

func NewService(
	repo domain.Repository,
	cache Cache,
	alerts AlertPublisher,
	idGen IDGenerator,
	alertEmail string,
	deductions *prometheus.CounterVec,
	lowStock prometheus.Counter,
) *Service {
	return &Service{
		repo:       repo,
		cache:      cache,
		alerts:     alerts,
		idGen:      idGen,
		alertEmail: alertEmail,
		deductions: deductions,
		lowStock:   lowStock,
	}
}

type ItemInput struct {
	SKUCode           string
	Name              string
	QuantityAvailable *int
	QuantityReserved  *int
	ReorderLevel      *int
	Location          string
	ExpiryDate        *time.Time
}

func (s *Service) Create(ctx context.Context, input ItemInput) (*domain.Item, error) {
	item, err := domain.NewItem(s.idGen.NewID(), input.SKUCode, input.Name)
	if err != nil {
		return nil, err
	}
	applyInput(item, input)

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, item.SKUCode)
	return item, nil
}

// Update fully overwrites the mutable fields of an existing item.
func (s *Service) Update(ctx context.Context, id string, input ItemInput) (*domain.Item, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item := &domain.Item{ID: id, SKUCode: input.SKUCode, Name: input.Name}
	applyInput(item, input)
	if item.SKUCode == "" {
		return nil, domain.ErrInvalidSKU
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	// Both the old and new SKU keys go stale on a SKU change.
	s.invalidate(ctx, existing.SKUCode)
	if item.SKUCode != existing.SKUCode {
		s.invalidate(ctx, item.SKUCode)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, existing.SKUCode)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, skuCode string) (*domain.Item, error) {
	if s.cache != nil {
		if item, ok := s.cache.GetBySKU(ctx, skuCode); ok {
			return item, nil
		}
	}
	item, err := s.repo.FindBySKU(ctx, skuCode)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetBySKU(ctx, item)
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Item, error) {
	if s.cache != nil {
		if items, ok := s.cache.GetList(ctx); ok {
			return items, nil
		}
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetList(ctx, items)
	}
	return items, nil
}

// Deduct atomically removes quantity from a SKU's available stock.
// Unknown SKU and insufficient stock both report false without mutation.
// When the committed deduction leaves the SKU strictly below its reorder
// level, a low-stock alert is published fire-and-forget: an alert failure
// never rolls back the deduction or fails the caller.
func (s *Service) Deduct(ctx context.Context, skuCode string, quantity int) (bool, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "stock_ledger"),
		zap.String("sku_code", skuCode),
		zap.Int("quantity", quantity),
	)

	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}

	item, err := s.repo.DeductBySKU(ctx, skuCode, quantity)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("deduct_sku_not_found")
		s.countDeduction("not_found")
		return false, nil
	case errors.Is(err, domain.ErrInsufficientStock):
		logger.Warn("deduct_insufficient_stock")
		s.countDeduction("insufficient")
		return false, nil
	case err != nil:
		s.countDeduction("error")
		return false, fmt.Errorf("inventory: deduct: %w", err)
	}

	s.invalidate(ctx, skuCode)
	s.countDeduction("success")
	logger.Info("deduct_committed", zap.Int("remaining", item.Available()))

	if item.BelowReorder() {
		s.fireLowStockAlert(ctx, item, logger)
	}
	return true, nil
}

func (s *Service) fireLowStockAlert(ctx context.Context, item *domain.Item, logger *zap.Logger) {
	if s.alerts == nil {
		return
	}
	if s.lowStock != nil {
		s.lowStock.Inc()
	}

	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	alert := domnotif.LowStockAlert{
		SKUCode:           item.SKUCode,
		QuantityAvailable: item.Available(),
		ReorderLevel:      item.Reorder(),
		ItemName:          item.Name,
		Email:             s.alertEmail,
	}
	if err := s.alerts.PublishLowStock(alertCtx, alert); err != nil {
		logger.Error("low_stock_alert_failed", zap.Error(err))
		return
	}
	logger.Info("low_stock_alert_published",
		zap.Int("available", alert.QuantityAvailable),
		zap.Int("reorder_level", alert.ReorderLevel),
	)
}

func (s *Service) invalidate(ctx context.Context, skuCode string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, skuCode)
	}
}

func (s *Service) countDeduction(outcome string) {
	if s.deductions != nil {
		s.deductions.WithLabelValues(outcome).Inc()
	}
}

func applyInput(item *domain.Item, input ItemInput) {
	item.Name = input.Name
	item.QuantityAvailable = input.QuantityAvailable
	item.QuantityReserved = input.QuantityReserved
	item.ReorderLevel = input.ReorderLevel
	item.Location = input.Location
	item.ExpiryDate = input.ExpiryDate
}

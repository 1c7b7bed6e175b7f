package order

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	domnotif "github.com/synexstock/orderflow/internal/domain/notification"
	domain "github.com/synexstock/orderflow/internal/domain/order"
	"github.com/synexstock/orderflow/internal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tracerName     = "order-orchestrator"
	fallbackDomain = "fallback.com"
)

// Service owns the order-placement saga and order CRUD. The saga never
// lets a business-level failure escape as an error: the caller always
// receives a well-formed order, FAILED when any downstream step broke.
type Service struct {
	repo          domain.Repository
	deductor      StockDeductor
	emails        EmailResolver
	notifications ConfirmationPublisher
	idGen         IDGenerator
	deductTimeout time.Duration
	placements    *prometheus.CounterVec
	sagaDuration  prometheus.Observer
}

func NewService(
	repo domain.Repository,
	deductor StockDeductor,
	emails EmailResolver,
	notifications ConfirmationPublisher,
	idGen IDGenerator,
	deductTimeout time.Duration,
	placements *prometheus.CounterVec,
	sagaDuration prometheus.Observer,
) *Service {
	return &Service{
		repo:          repo,
		deductor:      deductor,
		emails:        emails,
		notifications: notifications,
		idGen:         idGen,
		deductTimeout: deductTimeout,
		placements:    placements,
		sagaDuration:  sagaDuration,
	}
}

type PlaceOrderInput struct {
	SKUCode  string
	Quantity int
	PlacedBy string
}

// Place runs the saga:
//
//	validate -> persist PENDING -> deduct stock (sync, credential
//	forwarded) -> resolve email + enqueue confirmation -> persist terminal
//
// Exactly two order writes happen once validation passes, even when every
// downstream call fails.
func (s *Service) Place(ctx context.Context, credential string, input PlaceOrderInput) (_ *domain.Order, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.sku_code", input.SKUCode),
		attribute.Int("order.quantity", input.Quantity),
	)

	logger := logging.FromContext(ctx).With(
		zap.String("component", "order_orchestrator"),
		zap.String("sku_code", input.SKUCode),
		zap.String("placed_by", input.PlacedBy),
	)

	start := time.Now()
	defer func() {
		if s.sagaDuration != nil {
			s.sagaDuration.Observe(time.Since(start).Seconds())
		}
	}()

	entity, err := domain.New(s.idGen.NewID(), input.SKUCode, input.Quantity, input.PlacedBy)
	if err != nil {
		// Invalid input is the one failure surfaced directly, before any
		// persistence.
		span.SetStatus(codes.Error, "validation failed")
		s.countPlacement("invalid")
		return nil, err
	}

	// First write. The PENDING record must exist even if everything after
	// this point fails, so operators can see the attempt.
	if err := s.repo.Insert(ctx, entity); err != nil {
		span.SetStatus(codes.Error, "pending write failed")
		s.countPlacement("error")
		return nil, fmt.Errorf("order: persist pending: %w", err)
	}
	span.AddEvent("order.pending_persisted")
	logger = logger.With(zap.String("order_id", entity.ID))

	// The saga is past the point of no return: a client disconnect must not
	// abandon the order mid-flight.
	sagaCtx := context.WithoutCancel(ctx)

	if s.runSteps(sagaCtx, credential, entity, logger) {
		entity.MarkConfirmed()
		span.SetStatus(codes.Ok, "")
		s.countPlacement("confirmed")
	} else {
		entity.MarkFailed()
		span.SetStatus(codes.Error, "saga failed")
		s.countPlacement("failed")
	}
	span.SetAttributes(attribute.String("order.status", string(entity.Status)))

	// Second write, always.
	if err := s.repo.Update(sagaCtx, entity); err != nil {
		logger.Error("order_final_write_failed", zap.Error(err))
		return nil, fmt.Errorf("order: persist final status: %w", err)
	}
	logger.Info("order_saga_done", zap.String("status", string(entity.Status)))
	return entity, nil
}

// runSteps performs the fallible middle of the saga and reports whether
// the order should confirm. Every error, timeout, and panic from a
// collaborator is absorbed here and classified as failure.
func (s *Service) runSteps(ctx context.Context, credential string, entity *domain.Order, logger *zap.Logger) (confirmed bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("order_saga_panic", zap.Any("panic", r))
			confirmed = false
		}
	}()

	deductCtx, cancel := context.WithTimeout(ctx, s.deductTimeout)
	defer cancel()

	ok, err := s.deductor.Deduct(deductCtx, credential, entity.SKUCode, entity.Quantity)
	if err != nil {
		logger.Warn("stock_deduct_error", zap.Error(err))
		return false
	}
	if !ok {
		logger.Warn("stock_deduct_rejected")
		return false
	}

	// Nothing after the deduction may fail the order: stock is already
	// committed and no compensation exists for notification problems.
	toEmail := s.resolveEmail(ctx, credential, entity.PlacedBy, logger)
	s.enqueueConfirmation(ctx, entity, toEmail, logger)
	return true
}

// resolveEmail fails open to a deterministic fallback address so a user
// lookup outage never blocks order confirmation.
func (s *Service) resolveEmail(ctx context.Context, credential, username string, logger *zap.Logger) string {
	email, err := s.emails.EmailOf(ctx, credential, username)
	if err != nil || email == "" {
		logger.Warn("email_lookup_failed", zap.Error(err))
		return username + "@" + fallbackDomain
	}
	return email
}

func (s *Service) enqueueConfirmation(ctx context.Context, entity *domain.Order, toEmail string, logger *zap.Logger) {
	ev := domnotif.OrderConfirmation{
		ToEmail:  toEmail,
		UserName: entity.PlacedBy,
		SKUCode:  entity.SKUCode,
		Quantity: entity.Quantity,
	}
	if err := s.notifications.PublishOrderConfirmation(ctx, ev); err != nil {
		logger.Error("confirmation_enqueue_failed", zap.Error(err))
		return
	}
	logger.Info("confirmation_enqueued", zap.String("to", toEmail))
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

type UpdateOrderInput struct {
	SKUCode  string
	Quantity int
	PlacedBy string
}

// Update rewrites the request fields of an existing order. Status and
// placement time are owned by the saga and left untouched.
func (s *Service) Update(ctx context.Context, id string, input UpdateOrderInput) (*domain.Order, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.SKUCode == "" {
		return nil, domain.ErrInvalidSKU
	}
	if input.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	existing.SKUCode = input.SKUCode
	existing.Quantity = input.Quantity
	if input.PlacedBy != "" {
		existing.PlacedBy = input.PlacedBy
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

type Page struct {
	Orders     []*domain.Order
	Page       int
	Size       int
	TotalItems int
}

func (s *Service) List(ctx context.Context, page, size int) (*Page, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 10
	}
	orders, total, err := s.repo.List(ctx, page*size, size)
	if err != nil {
		return nil, err
	}
	return &Page{Orders: orders, Page: page, Size: size, TotalItems: total}, nil
}

func (s *Service) countPlacement(outcome string) {
	if s.placements != nil {
		s.placements.WithLabelValues(outcome).Inc()
	}
}

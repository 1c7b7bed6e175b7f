package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	appInventory "github.com/synexstock/orderflow/internal/application/inventory"
	appNotification "github.com/synexstock/orderflow/internal/application/notification"
	appOrder "github.com/synexstock/orderflow/internal/application/order"
	appUser "github.com/synexstock/orderflow/internal/application/user"
	"github.com/synexstock/orderflow/internal/auth"
	"github.com/synexstock/orderflow/internal/config"
	domInventory "github.com/synexstock/orderflow/internal/domain/inventory"
	domNotification "github.com/synexstock/orderflow/internal/domain/notification"
	domOrder "github.com/synexstock/orderflow/internal/domain/order"
	domUser "github.com/synexstock/orderflow/internal/domain/user"
	httptransport "github.com/synexstock/orderflow/internal/infrastructure/http"
	"github.com/synexstock/orderflow/internal/infrastructure/httpclient"
	"github.com/synexstock/orderflow/internal/infrastructure/id"
	"github.com/synexstock/orderflow/internal/infrastructure/mail"
	"github.com/synexstock/orderflow/internal/infrastructure/memory"
	mysqlrepo "github.com/synexstock/orderflow/internal/infrastructure/mysql"
	"github.com/synexstock/orderflow/internal/infrastructure/queue"
	"github.com/synexstock/orderflow/internal/infrastructure/rabbitmq"
	"github.com/synexstock/orderflow/internal/infrastructure/rediscache"
	"github.com/synexstock/orderflow/internal/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	orderPlacements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_placements_total",
			Help: "Order placement sagas by outcome.",
		},
		[]string{"outcome"},
	)
	sagaDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_saga_duration_seconds",
			Help:    "Duration of the order placement saga.",
			Buckets: prometheus.DefBuckets,
		},
	)
	stockDeductions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_deductions_total",
			Help: "Stock deduction attempts by outcome.",
		},
		[]string{"outcome"},
	)
	lowStockAlerts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "low_stock_alerts_total",
			Help: "Low-stock alerts published.",
		},
	)
	notificationSends := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sends_total",
			Help: "Notification deliveries by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method and status.",
		},
		[]string{"method", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	prometheus.MustRegister(
		orderPlacements, sagaDuration, stockDeductions, lowStockAlerts,
		notificationSends, httpRequests, httpDurations,
	)

	// Repositories: MySQL when a DSN is configured, in-memory otherwise.
	var (
		orderRepo     domOrder.Repository
		inventoryRepo domInventory.Repository
		userRepo      domUser.Repository
	)
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("mysql_open_failed", zap.Error(err))
		}
		defer db.Close()
		orderRepo = mysqlrepo.NewOrderRepository(db)
		inventoryRepo = mysqlrepo.NewInventoryRepository(db)
		userRepo = mysqlrepo.NewUserRepository(db)
		logger.Info("storage_selected", zap.String("kind", "mysql"))
	} else {
		orderRepo = memory.NewOrderRepository()
		inventoryRepo = memory.NewInventoryRepository()
		userRepo = memory.NewUserRepository()
		logger.Info("storage_selected", zap.String("kind", "memory"))
	}

	var invCache appInventory.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		invCache = rediscache.NewInventoryCache(client, logger)
		logger.Info("inventory_cache_enabled", zap.String("addr", cfg.RedisAddr))
	}

	// Notification queue: RabbitMQ when configured, in-memory otherwise.
	var (
		notifPublisher domNotification.Publisher
		notifConsumer  domNotification.Consumer
	)
	if cfg.RabbitMQURL != "" {
		q, err := rabbitmq.New(cfg.RabbitMQURL, cfg.NotificationQueue, logger)
		if err != nil {
			logger.Fatal("rabbitmq_connect_failed", zap.Error(err))
		}
		defer q.Close()
		notifPublisher, notifConsumer = q, q
	} else {
		q := queue.NewMemory(logger)
		defer q.Close()
		notifPublisher, notifConsumer = q, q
	}

	var sender appNotification.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	} else {
		sender = mail.NewLogSender(logger)
	}

	idGenerator := id.NewUUIDGenerator()
	tokenService := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	dispatcher := appNotification.NewDispatcher(notifPublisher)

	userService := appUser.NewService(userRepo, tokenService, idGenerator)
	inventoryService := appInventory.NewService(
		inventoryRepo, invCache, dispatcher, idGenerator, cfg.AlertEmail,
		stockDeductions, lowStockAlerts,
	)

	// The saga's downstream calls go over HTTP when peer URLs are
	// configured; otherwise they stay in-process.
	var deductor appOrder.StockDeductor = httpclient.NewInProcessDeductor(inventoryService)
	if cfg.InventoryURL != "" {
		deductor = httpclient.NewInventoryClient(cfg.InventoryURL, cfg.DeductTimeout)
	}
	var emails appOrder.EmailResolver = httpclient.NewInProcessEmailResolver(userService)
	if cfg.UserServiceURL != "" {
		emails = httpclient.NewUserClient(cfg.UserServiceURL, cfg.DeductTimeout)
	}

	orderService := appOrder.NewService(
		orderRepo, deductor, emails, dispatcher, idGenerator,
		cfg.DeductTimeout, orderPlacements, sagaDuration,
	)

	consumer := appNotification.NewConsumer(notifConsumer, sender, logger, notificationSends)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification_consumer_stopped", zap.Error(err))
		}
	}()

	handler := httptransport.NewHandler(orderService, inventoryService, userService, cfg.DefaultPageSize)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	var root http.Handler = httptransport.Authenticate(tokenService, mux)
	root = httptransport.RequestMetrics(httpRequests, httpDurations, root)
	root = httptransport.RequestLogging(logger, root)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: root,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

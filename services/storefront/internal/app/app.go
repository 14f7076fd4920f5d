package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NhuHoa123/stationery-storefront/pkg/database"
	"github.com/NhuHoa123/stationery-storefront/pkg/health"
	"github.com/NhuHoa123/stationery-storefront/pkg/idempotency"
	pkgkafka "github.com/NhuHoa123/stationery-storefront/pkg/kafka"
	"github.com/NhuHoa123/stationery-storefront/pkg/tracing"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/catalog"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/config"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/event"
	handler "github.com/NhuHoa123/stationery-storefront/services/storefront/internal/handler/http"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/pricing"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/repository"
	memoryrepo "github.com/NhuHoa123/stationery-storefront/services/storefront/internal/repository/memory"
	redisrepo "github.com/NhuHoa123/stationery-storefront/services/storefront/internal/repository/redis"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/service"
)

const idempotencyPrefix = "idempotency:checkout"

// sweepInterval is how often expired in-memory idempotency keys are dropped.
const sweepInterval = time.Minute

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	keys           *idempotency.MemoryStore
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}

	// Static catalog and pricing policy.
	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	policy, err := pricing.Load(cfg.PricingPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load pricing policy: %w", err)
	}
	logger.Info("catalog loaded",
		slog.Int("products", products.Len()),
		slog.String("currency", policy.Currency),
	)

	healthHandler := health.NewHandler()

	// Cart storage and checkout idempotency keys.
	var (
		repo repository.CartRepository
		keys idempotency.Store
	)
	switch cfg.CartStore {
	case config.StoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		a.rdb = rdb
		repo = redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration())
		keys = idempotency.NewRedisStore(rdb, idempotencyPrefix, cfg.IdempotencyTTLDuration())
		healthHandler.Register("redis", database.RedisHealthCheck(rdb))
	default:
		repo = memoryrepo.NewCartRepository(cfg.CartTTLDuration())
		a.keys = idempotency.NewMemoryStore(cfg.IdempotencyTTLDuration())
		keys = a.keys
		logger.Info("using in-memory cart store")
	}

	// Kafka producer, or a discarding publisher when Kafka is disabled.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	events := event.NewProducer(publisher, logger)
	cartService := service.NewCartService(repo, products, events, logger, service.Limits{
		MaxQuantityPerItem: cfg.MaxQuantityPerItem,
		MaxLineItems:       cfg.MaxLineItems,
	})
	checkoutService := service.NewCheckoutService(cartService, policy, keys, events, logger)

	// HTTP router.
	router := handler.NewRouter(cartService, checkoutService, products, healthHandler, logger, handler.RouterConfig{
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.keys != nil {
		go a.sweepKeys(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

func (a *App) sweepKeys(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.keys.Sweep(); n > 0 {
				a.logger.Debug("expired idempotency keys swept", slog.Int("count", n))
			}
		}
	}
}

// Shutdown gracefully stops all components in order: HTTP server, Kafka
// producer, Redis client, tracer.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/brandeduk/catalog/internal/cache"
	"github.com/brandeduk/catalog/internal/config"
	"github.com/brandeduk/catalog/internal/event"
	"github.com/brandeduk/catalog/internal/facet"
	handler "github.com/brandeduk/catalog/internal/handler/http"
	"github.com/brandeduk/catalog/internal/invalidate"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/reconcile"
	repopg "github.com/brandeduk/catalog/internal/repository/postgres"
	"github.com/brandeduk/catalog/internal/service"
	"github.com/brandeduk/catalog/internal/snapshot"
	"github.com/brandeduk/catalog/internal/snapshot/memory"
	snappg "github.com/brandeduk/catalog/internal/snapshot/postgres"
	"github.com/brandeduk/catalog/migrations"
	"github.com/brandeduk/catalog/pkg/database"
	"github.com/brandeduk/catalog/pkg/health"
	pkgkafka "github.com/brandeduk/catalog/pkg/kafka"
	"github.com/brandeduk/catalog/pkg/middleware"
)

// refresherFunc adapts a function to snapshot.Refresher.
type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	pool        *pgxpool.Pool
	redisClient *redis.Client
	consumers   []*pkgkafka.Consumer
	broadcaster *invalidate.Broadcaster
	httpServer  *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Primary database: authoritative styles plus the style_search read model.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pgStore := snappg.NewStore(pool)
	styleRepo := repopg.NewStyleRepository(pool)

	// Snapshot backend: queries run against Postgres directly, or against an
	// in-process copy of style_search reloaded on refresh.
	var (
		store     snapshot.Store
		refresher snapshot.Refresher
	)
	switch cfg.SnapshotStore {
	case "memory":
		memStore := memory.NewStoreWithLoader(pgStore.Rows)
		if err := memStore.Refresh(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("load snapshot into memory: %w", err)
		}
		store = memStore
		refresher = refresherFunc(func(ctx context.Context) error {
			if err := pgStore.Refresh(ctx); err != nil {
				return err
			}
			return memStore.Refresh(ctx)
		})
		logger.Info("in-memory snapshot store initialized")
	default:
		store = pgStore
		refresher = pgStore
		logger.Info("postgres snapshot store initialized")
	}

	planner := query.NewPlanner(store, cfg.PlanTimeout, logger)
	reconciler := reconcile.NewReconciler(styleRepo, logger)
	aggregator := facet.NewAggregator(store, planner, logger)

	// Cache tiers. With Redis the remote tier is shared across replicas and
	// carries the invalidation channel; without it both tiers are in-process.
	local := cache.NewLocal(cfg.LocalCacheSize)
	var (
		remote      cache.Cache
		channel     invalidate.Channel = invalidate.NoopChannel{}
		redisClient *redis.Client
	)
	if cfg.RedisEnabled {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis client: %w", err)
		}
		remote = cache.NewRedis(redisClient)
		channel = invalidate.NewRedisChannel(redisClient, logger)
		logger.Info("redis cache tier initialized", slog.String("addr", cfg.Redis().Addr()))
	} else {
		remote = cache.NewLocal(cfg.LocalCacheSize)
		logger.Info("running with local-only cache, no cross-replica invalidation")
	}
	tiered := cache.NewTiered(remote, local, logger)

	broadcaster := invalidate.NewBroadcaster(
		tiered, channel, refresher,
		cfg.InvalidateDebounce, cfg.InvalidateDedupe,
		logger,
	)

	catalogService := service.NewCatalogService(
		planner, reconciler, aggregator, styleRepo,
		tiered,
		cache.TTLs{
			List:   cfg.CacheTTLList,
			Search: cfg.CacheTTLSearch,
			Facets: cfg.CacheTTLFacets,
			Detail: cfg.CacheTTLDetail,
		},
		broadcaster, refresher, logger,
	)

	// Kafka consumers translate upstream catalog change events into cache
	// invalidations.
	var consumers []*pkgkafka.Consumer
	if cfg.KafkaEnabled {
		eventConsumer := event.NewConsumer(broadcaster, logger)
		for _, topic := range event.AllTopics() {
			consumerCfg := pkgkafka.ConsumerConfig{
				Brokers:  cfg.KafkaBrokers,
				GroupID:  cfg.KafkaGroupID,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10e6, // 10 MB
			}
			consumers = append(consumers, pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, logger))
		}
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(event.AllTopics())),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.KafkaEnabled {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(catalogService, healthHandler, cors, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redisClient: redisClient,
		consumers:   consumers,
		broadcaster: broadcaster,
		httpServer:  httpServer,
	}, nil
}

// Run starts the HTTP server, the invalidation listener, and the Kafka
// consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2+len(a.consumers))

	// Listen for invalidation broadcasts from other replicas.
	go func() {
		if err := a.broadcaster.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("invalidation listener: %w", err)
		}
	}()

	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/basket"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/reservation"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/user"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

// App owns every long-lived resource of the service.
type App struct {
	cfg    config.Config
	logger zerolog.Logger

	pool        *pgxpool.Pool
	amqpConn    *amqp.Connection
	redis       *redis.Client
	publisher   *events.Publisher
	consumer    *events.Consumer
	memSessions *session.MemoryStore

	Reservations *reservation.Service
	Catalog      *catalog.Service
	Users        *user.Service

	handler http.Handler
}

// New connects to every backing service the config enables and wires the
// domain services. Call Close when done, also after an error from Serve.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// --- DB ---
	a.pool, err = db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := a.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	txm := db.NewTxManager(a.pool)
	clk := clock.NewSystem()

	// --- metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reservationMetrics, err := metrics.NewReservations(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// --- AMQP ---
	if cfg.PublishEvents || cfg.ConsumeCatalogEvents {
		a.amqpConn, err = events.Dial(cfg.RabbitMQURL, 10, 2*time.Second)
		if err != nil {
			return nil, err
		}
	}

	opts := []reservation.Option{
		reservation.WithPolicy(cfg.Policy()),
		reservation.WithMetrics(reservationMetrics),
		reservation.WithLogger(logger.With().Str("component", "reservation").Logger()),
	}
	if cfg.PublishEvents {
		a.publisher, err = events.NewPublisher(a.amqpConn, sequence.NewRepository(a.pool))
		if err != nil {
			return nil, fmt.Errorf("start publisher: %w", err)
		}
		opts = append(opts, reservation.WithNotifier(a.publisher))
	}

	ledger := inventory.NewPostgresRepository(a.pool)
	baskets := basket.NewPostgresRepository(a.pool)
	a.Reservations = reservation.NewService(txm, ledger, baskets, opts...)
	a.Catalog = catalog.NewService(txm, catalog.NewPostgresRepository(a.pool), clk,
		logger.With().Str("component", "catalog").Logger())
	a.Users = user.NewService(user.NewPostgresRepository(a.pool), clk)

	if cfg.ConsumeCatalogEvents {
		handler := events.StockSetHandler(a.Catalog, dedup.NewRepository(a.pool), logger)
		a.consumer, err = events.NewConsumer(a.amqpConn, events.CatalogStockSetRoutingKey, handler, logger)
		if err != nil {
			return nil, fmt.Errorf("start consumer: %w", err)
		}
	}

	if cfg.AdminEmail != "" {
		admin, err := a.Users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info().Str("user_id", admin.ID).Msg("admin account ready")
	}

	// --- sessions ---
	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		sessions = session.NewRedisStore(a.redis, cfg.SessionTTL)
	default:
		a.memSessions = session.NewMemoryStore(cfg.SessionTTL, clk)
		sessions = a.memSessions
	}

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Reservations: a.Reservations,
		Baskets:      baskets,
		Stock:        ledger,
		Products:     a.Catalog,
		Accounts:     a.Users,
		Sessions:     sessions,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})
	a.handler = httpapi.NewRouter(h, logger)

	logger.Info().
		Str("reserve_policy", string(a.Reservations.Policy())).
		Str("session_backend", cfg.SessionBackend).
		Bool("publish_events", cfg.PublishEvents).
		Bool("consume_catalog_events", cfg.ConsumeCatalogEvents).
		Msg("service wired")
	return a, nil
}

func (a *App) Handler() http.Handler { return a.handler }

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server, the catalog consumer and the session sweeper.
// The first one to fail stops the others.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("http listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(gctx) })
	}
	if a.memSessions != nil {
		g.Go(func() error {
			a.memSessions.RunSweeper(gctx, sweepInterval)
			return nil
		})
	}

	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.amqpConn != nil {
		_ = a.amqpConn.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

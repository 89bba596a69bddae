package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/config"
	httptransport "github.com/example/skillswap/internal/http"
	"github.com/example/skillswap/internal/logging"
	"github.com/example/skillswap/internal/notify"
	"github.com/example/skillswap/internal/persistence"
	"github.com/example/skillswap/internal/persistence/memory"
	"github.com/example/skillswap/internal/persistence/sqlite"
	"github.com/example/skillswap/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := run(ctx, cfg, logger, registry); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, registry *prometheus.Registry) error {
	app, err := newApp(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("skill swap API listening", "addr", server.Addr, "store", cfg.StoreDriver, "redis", cfg.RedisURL != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app is the fully wired service graph behind one HTTP handler.
type app struct {
	handler  http.Handler
	store    *application.EntityStore
	services services
	closers  []func() error
	logger   *slog.Logger
}

type services struct {
	users    *application.UserService
	listings *application.ListingService
	requests *application.RequestService
	swaps    *application.SwapService
	schedule *application.ScheduleService
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, registry *prometheus.Registry) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	var checks []func(context.Context) error

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, backend.Close)
	if pinger, ok := backend.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, pinger.Ping)
	}

	publishers := notify.Fanout{notify.NewLogPublisher(logger)}
	var subscriber notify.Subscriber
	if cfg.RedisURL != "" {
		opts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return a, fmt.Errorf("parse redis url: %w", perr)
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, rdb.Close)
		bus := notify.NewRedisPublisher(rdb, cfg.EventPrefix, logger)
		if err = bus.Ping(ctx); err != nil {
			return a, fmt.Errorf("connect redis: %w", err)
		}
		publishers = append(publishers, bus)
		subscriber = bus
		checks = append(checks, bus.Ping)
	} else {
		hub := notify.NewHub()
		publishers = append(publishers, hub)
		subscriber = hub
	}

	a.store = application.NewEntityStore(backend, time.Now)
	deps := application.Dependencies{
		Store:       a.store,
		Events:      notify.NewInstrumented(publishers, registry),
		IDGenerator: uuid.NewString,
		Now:         time.Now,
		Logger:      logger,
		Settings: application.Settings{
			PageSize:      cfg.PageSize,
			UpcomingLimit: cfg.UpcomingLimit,
			Location:      cfg.Location,
		},
	}
	a.services = services{
		users:    application.NewUserService(deps),
		listings: application.NewListingService(deps),
		requests: application.NewRequestService(deps),
		swaps:    application.NewSwapService(deps),
		schedule: application.NewScheduleService(deps),
	}

	if cfg.SeedDemo {
		if _, err = seed.New(a.services.users, a.services.listings, seed.DefaultOptions(), logger).Run(ctx); err != nil {
			return a, err
		}
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Users:    httptransport.NewUserHandler(a.services.users, logger),
		Listings: httptransport.NewListingHandler(a.services.listings, logger),
		Requests: httptransport.NewRequestHandler(a.services.requests, logger),
		Swaps:    httptransport.NewSwapHandler(a.services.swaps, logger),
		Schedule: httptransport.NewScheduleHandler(a.services.schedule, cfg.Location, logger),
		Events:   httptransport.NewEventStreamHandler(subscriber, logger),
		Identity: httptransport.NewJWTVerifier(cfg.IdentitySecret),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Health: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestMetrics(registry)},
	})
	return a, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memory.Open(), nil
	case config.StoreSQLite, "":
		storage, err := sqlite.Open(ctx, sqlite.Options{DSN: cfg.SQLiteDSN, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"restrodesk/internal/billing"
	"restrodesk/internal/cache"
	"restrodesk/internal/config"
	"restrodesk/internal/db"
	"restrodesk/internal/db/mock"
	"restrodesk/internal/events"
	"restrodesk/internal/handlers"
	"restrodesk/internal/ledger"
	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/internal/orders"
	"restrodesk/internal/production"
	"restrodesk/internal/requisitions"
	"restrodesk/internal/server"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

// Seams for tests.
var (
	loadConfigFunc       = config.Load
	setLogLevelFunc      = applog.SetLevel
	newMockDatabaseFunc  = mock.New
	configureDatabase    = db.Configure
	connectBrokerFunc    = events.SetupConn
	newServerFunc        = func(cfg server.Config) (serverLifecycle, error) { return server.New(cfg) }
	buildDepsFunc        = buildDependencies
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		return sigCh, func() { signal.Stop(sigCh) }
	}
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "invalid configuration", "error", err)
		return 1
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "error", err, "level", cfg.Logging.Level)
		return 1
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		applog.Info(ctx, "using in-memory mock database")
		database, err = newMockDatabaseFunc(ctx)
		if err != nil {
			applog.Error(ctx, "failed to initialize mock database", "error", err)
			return 1
		}
	} else {
		database, err = configureDatabase(cfg.Database)
		if err != nil {
			applog.Error(ctx, "failed to configure database", "error", err)
			return 1
		}
	}

	publisher := events.NewPublisher(nil)
	if cfg.Events.AMQPURL != "" {
		conn, ch, err := connectBrokerFunc(cfg.Events.AMQPURL)
		if err != nil {
			applog.Error(ctx, "failed to connect to message broker", "error", err)
			return 1
		}
		defer conn.Close()
		defer ch.Close()
		publisher = events.NewPublisher(ch)
		applog.Info(ctx, "kitchen event publisher connected")
	}

	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer redisClient.Close()
		applog.Info(ctx, "menu cache enabled", "addr", cfg.Cache.RedisAddr)
	}

	dependencies, err := buildDepsFunc(database, publisher, redisClient, cfg.Cache.MenuTTL)
	if err != nil {
		applog.Error(ctx, "failed to build domain services", "error", err)
		return 1
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Deps:     dependencies,
	})
	if err != nil {
		applog.Error(ctx, "failed to initialize server", "error", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	shutdownCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
	case <-shutdownCh:
		applog.Info(ctx, "shutting down http server")
		if err := srv.Stop(); err != nil {
			applog.Error(ctx, "graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

func buildDependencies(database *gorm.DB, publisher *events.Publisher, redisClient *redis.Client, menuTTL time.Duration) (handlers.Dependencies, error) {
	locker := locks.New()
	stockLedger := ledger.New(database, locker)

	billingEngine, err := billing.New(database)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("billing engine: %w", err)
	}
	orderService, err := orders.NewService(database, billingEngine, locker, publisher)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("order service: %w", err)
	}

	return handlers.Dependencies{
		Ledger:       stockLedger,
		Production:   production.New(database, stockLedger, locker, publisher),
		Billing:      billingEngine,
		Orders:       orderService,
		Requisitions: requisitions.NewService(database, stockLedger, locker),
		Menu:         cache.NewMenu(redisClient, menuTTL),
	}, nil
}

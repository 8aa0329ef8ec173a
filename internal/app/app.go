package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-reconciler/internal/adapter/intake"
	"github.com/rl1809/stock-reconciler/internal/adapter/storage"
	"github.com/rl1809/stock-reconciler/internal/config"
	"github.com/rl1809/stock-reconciler/internal/core/service"
	"github.com/rl1809/stock-reconciler/internal/logger"
	"github.com/rl1809/stock-reconciler/internal/metrics"
	"github.com/rl1809/stock-reconciler/internal/port"
)

// Store is a backend that serves both the inventory and the ledger.
type Store interface {
	port.InventoryRepository
	port.LedgerRepository
	Ping(ctx context.Context) error
	Close() error
}

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     Store
	Guard     port.DocumentGuard
	Runner    service.Runner
	Extractor port.ItemExtractor
	Batch     *service.BatchProcessor

	closers []io.Closer
}

type Options struct {
	ServiceName string
	Output      io.Writer
	Registerer  prometheus.Registerer
	// Extractor overrides the configured one.
	Extractor   port.ItemExtractor
}

func NewLogger(cfg *config.Config, serviceName string, out io.Writer) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      out,
	})
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: NewLogger(cfg, opts.ServiceName, opts.Output),
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)
	a.Logger.Info(a.Logger.WithField(ctx, "driver", cfg.Store.Driver), "store opened")

	if cfg.Redis.Enabled() {
		guard, client, err := OpenGuard(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Guard = guard
		a.closers = append(a.closers, client)
		a.Logger.Info(a.Logger.WithField(ctx, "redis_addr", cfg.Redis.Addr), "document guard enabled")
	}

	a.Extractor = opts.Extractor
	if a.Extractor == nil {
		a.Extractor = NewExtractor(cfg.LLM)
	}

	runner := service.NewWorkflowRunner(store, store,
		service.WithLogger(a.Logger),
		service.WithMetrics(metrics.NewWorkflowMetrics(opts.Registerer)),
	)
	a.Runner = service.NewDedupingRunner(runner, a.Guard, a.Logger)
	a.Batch = service.NewBatchProcessor(intake.NewTextParser(), a.Extractor, a.Runner, cfg.Batch.Workers, a.Logger)

	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func OpenStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMySQL:
		s, err := openMySQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

func openMySQL(ctx context.Context, cfg config.StoreConfig) (*storage.MySQLAdapter, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := adapter.ApplySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}

// OpenGuard connects to Redis and returns the claim guard and its client.
func OpenGuard(ctx context.Context, cfg config.RedisConfig) (*storage.RedisAdapter, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	guard := storage.NewRedisAdapter(client, cfg.ClaimTTL)
	if err := guard.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return guard, client, nil
}

// NewExtractor picks the LLM extractor when a key or endpoint is
// configured and the rule extractor otherwise.
func NewExtractor(cfg config.LLMConfig) port.ItemExtractor {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return intake.NewRuleExtractor()
	}
	return intake.NewLLMExtractor(intake.LLMOptions{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		MaxRetries: 2,
	})
}

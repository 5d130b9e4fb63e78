// Package backend assembles the persistence side of the application from
// configuration: it picks the store implementation and, when configured,
// attaches the event broker.
package backend

import (
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/storage"
)

// Stores is the full persistence surface the services need.
type Stores interface {
	store.EntryStore
	store.AnalysisStore
	store.UserStore
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result bundles the assembled backend. Events is nil when no broker is
// configured; callers treat that as publish-nothing. Cleanup may be nil.
type Result struct {
	Stores  Stores
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Build constructs the backend named by cfg.DataBackend. A broker that
// fails to connect is logged and skipped rather than failing startup:
// snapshots stay durable either way, only pruning gets delayed.
func Build(cfg config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	events := connectEvents(cfg, logger)

	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			if events != nil {
				events.Close()
			}
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend",
			"db_path", cfg.SQLiteDBPath,
			"amqp_enabled", events != nil)
		return &Result{
			Stores:  repo,
			Events:  events,
			Cleanup: combineCleanup(repo.Close, events),
		}, nil

	case config.BackendMemory:
		logger.Info("Initialized memory backend", "amqp_enabled", events != nil)
		return &Result{
			Stores:  memory.New(),
			Events:  events,
			Cleanup: combineCleanup(nil, events),
		}, nil

	default:
		if events != nil {
			events.Close()
		}
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

func connectEvents(cfg config.Config, logger *slog.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

func combineCleanup(closeStore func() error, events *amqp.Client) CleanupFunc {
	return func() error {
		var firstErr error
		if events != nil {
			if err := events.Close(); err != nil {
				firstErr = fmt.Errorf("close amqp client: %w", err)
			}
		}
		if closeStore != nil {
			if err := closeStore(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close store: %w", err)
			}
		}
		return firstErr
	}
}

package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	metrics *metrics.Collector
	opts    []services.Option
}

// NewFactory creates a new backend factory. m may be nil; extra options are
// passed to every LedgerService it builds.
func NewFactory(logger *log.Logger, m *metrics.Collector, opts ...services.Option) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		metrics: m,
		opts:    opts,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo storage.Repository
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		repo = sqliteRepo
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		repo = storage.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	opts := append([]services.Option{services.WithLogger(f.logger)}, f.opts...)
	if f.metrics != nil {
		opts = append(opts, services.WithEventObserver(f.metrics.RecordEvent))
	}

	// Events are optional: a broker that is down at startup only disables them.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			amqpClient = client
			opts = append(opts, services.WithEvents(client))
		}
	}

	ledger := services.NewLedgerService(repo, opts...)
	return &BackendResult{
		Ledger:        ledger,
		Cleanup:       ledger.Close,
		EventsEnabled: amqpClient != nil,
	}, nil
}

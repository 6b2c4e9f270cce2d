package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"approvals/internal/amqp"
	"approvals/internal/api"
	"approvals/internal/api/memory"
	applog "approvals/internal/log"
	"approvals/internal/seed"
	"approvals/internal/services"
	"approvals/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		be      api.Backend
		cleanup []func() error
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		be, cleanup, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		be, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	publisher, closePublisher := f.createPublisher(config)
	if closePublisher != nil {
		cleanup = append(cleanup, closePublisher)
	}

	return &BackendResult{
		Backend:   be,
		Approvals: services.NewApprovalService(be, publisher),
		Cleanup: func() error {
			var errs []error
			for _, fn := range cleanup {
				errs = append(errs, fn())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (api.Backend, []func() error, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.PageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	data, err := seed.Load(config.SeedFile)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("load seed: %w", err)
	}
	seeded, err := repo.SeedIfEmpty(ctx, data)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("seed SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"seeded", seeded)
	return repo, []func() error{repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (api.Backend, error) {
	store, err := memory.NewFromSeed(config.SeedFile, config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return store, nil
}

// createPublisher connects to AMQP when configured. A failed connection is
// logged and the backend continues without events.
func (f *DefaultFactory) createPublisher(config Config) (services.ApprovalPublisher, func() error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without approval events",
			applog.FieldError, err)
		return nil, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, client.Close
}

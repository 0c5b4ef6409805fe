package main

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"staysync/internal/app/middleware"
	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/infra/broker/kafka"
	"staysync/internal/infra/config"
	"staysync/internal/infra/db/gormdb"
	mongodb "staysync/internal/infra/db/mongo"
	"staysync/internal/infra/inbox"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
	"staysync/internal/infra/storage/memory"
)

const inboxConsumer = "payments"

type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Queue
}

// storage bundles everything the selected backend provides.
type storage struct {
	factory     uow.UoWFactory
	properties  domainproperty.Repository
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	checks      map[string]obs.Check
	// purge removes expired idempotency records when the backend does not
	// expire them on its own.
	purge func(ctx context.Context) (int64, error)
	close func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, pricing domainpricing.Calculator, logger *slog.Logger) (storage, error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		return openMongo(ctx, cfg, pricing)
	case config.BackendPostgres, config.BackendSQLite:
		return openSQL(cfg, pricing, logger)
	default:
		return openMemory(cfg, pricing), nil
	}
}

func openMemory(cfg config.Config, pricing domainpricing.Calculator) storage {
	properties := memory.NewPropertyRepository()
	return storage{
		factory: memory.Factory{
			PropertiesRepo: properties,
			CalendarsRepo:  memory.NewCalendarRepository(),
			PricingSvc:     pricing,
		},
		properties:  properties,
		outbox:      memory.NewOutbox(),
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		inbox:       memory.NewInbox(),
		checks:      map[string]obs.Check{},
		close:       func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.Config, pricing domainpricing.Calculator) (storage, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo connect: %w", err)
	}
	closeFn := client.Close

	properties := mongodb.NewPropertyRepository(client.DB)
	calendars, err := mongodb.NewCalendarRepository(ctx, client.DB)
	if err != nil {
		_ = closeFn(ctx)
		return storage{}, fmt.Errorf("mongo calendars: %w", err)
	}
	outboxStore, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		_ = closeFn(ctx)
		return storage{}, fmt.Errorf("mongo outbox: %w", err)
	}
	idempotency, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		_ = closeFn(ctx)
		return storage{}, fmt.Errorf("mongo idempotency: %w", err)
	}
	inboxStore, err := inbox.NewStore(ctx, client.DB, inboxConsumer)
	if err != nil {
		_ = closeFn(ctx)
		return storage{}, fmt.Errorf("mongo inbox: %w", err)
	}

	return storage{
		factory: mongodb.Factory{
			DB:             client.DB,
			PropertiesRepo: properties,
			CalendarsRepo:  calendars,
			PricingSvc:     pricing,
		},
		properties:  properties,
		outbox:      outboxStore,
		idempotency: idempotency,
		inbox:       inboxStore,
		checks:      map[string]obs.Check{"mongo": client.Ping},
		close:       closeFn,
	}, nil
}

func openSQL(cfg config.Config, pricing domainpricing.Calculator, logger *slog.Logger) (storage, error) {
	db, err := gormdb.Connect(cfg.DatabaseDSN, logger)
	if err != nil {
		return storage{}, fmt.Errorf("%s connect: %w", cfg.StorageBackend, err)
	}
	if err := gormdb.Migrate(db); err != nil {
		return storage{}, fmt.Errorf("%s migrate: %w", cfg.StorageBackend, err)
	}
	idempotency := gormdb.NewIdempotencyStore(db, cfg.IdempotencyTTL)
	return storage{
		factory:     gormdb.Factory{DB: db, PricingSvc: pricing},
		properties:  gormdb.NewPropertyRepository(db),
		outbox:      gormdb.NewOutbox(db),
		idempotency: idempotency,
		inbox:       gormdb.NewInbox(db, inboxConsumer),
		checks: map[string]obs.Check{
			cfg.StorageBackend: func(ctx context.Context) error { return gormdb.Ping(ctx, db) },
		},
		purge: idempotency.Purge,
		close: func(context.Context) error { return closeSQL(db) },
	}, nil
}

func closeSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

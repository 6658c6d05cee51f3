package main

import (
	"context"
	"fmt"

	"btg-funds/internal/adapters/persistence/memory"
	"btg-funds/internal/adapters/persistence/models"
	"btg-funds/internal/adapters/persistence/mongostore"
	"btg-funds/internal/adapters/persistence/repositories"
	"btg-funds/internal/config"
	"btg-funds/internal/core/services"
)

// fundStore is a catalog the seeder can write to
type fundStore interface {
	services.FundCatalog
	config.FundWriter
}

// backend bundles the stores of one storage driver
type backend struct {
	users      services.UserStore
	clients    services.ClientStore
	funds      fundStore
	txlog      services.TransactionLog
	transactor services.Transactor

	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// openBackend connects the storage driver selected by STORAGE_DRIVER
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		db := memory.NewDB()
		return &backend{
			users:      memory.NewUserStore(db),
			clients:    memory.NewClientStore(db),
			funds:      memory.NewFundCatalog(db),
			txlog:      memory.NewTransactionLog(db),
			transactor: memory.NewTransactor(db),
			migrate:    func(context.Context) error { return nil },
			close:      func(context.Context) error { return nil },
		}, nil

	case config.DriverMongo:
		store, err := mongostore.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return &backend{
			users:      store.Users(),
			clients:    store.Clients(),
			funds:      store.Funds(),
			txlog:      store.Transactions(),
			transactor: store.Transactor(),
			migrate:    store.EnsureIndexes,
			ping:       store.Ping,
			close:      store.Close,
		}, nil

	case config.DriverMySQL:
		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			users:      repositories.NewUserRepository(db),
			clients:    repositories.NewClientRepository(db),
			funds:      repositories.NewFundRepository(db),
			txlog:      repositories.NewTransactionRepository(db),
			transactor: repositories.NewTransactor(db),
			migrate:    func(context.Context) error { return models.AutoMigrate(db) },
			ping:       config.HealthCheck,
			close:      func(context.Context) error { return config.CloseDatabase() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

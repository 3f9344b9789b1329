package storage

import (
	"context"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-auth-service/internal/infrastructure/postgres"
)

// Open connects the store selected by DB_DRIVER and prepares its schema.
// The returned cleanup func closes the connection.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	errb := oops.Code("INFRASTRUCTURE").In("storage").With("driver", cfg.DBDriver)

	switch cfg.DBDriver {
	case config.DriverMongo, "":
		client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.DBTimeout)
		if err != nil {
			return nil, func() {}, errb.Wrapf(err, "connect mongodb")
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		repo := mongodb.NewUserRepository(client.Database(cfg.MongoDatabase), cfg.DBTimeout)
		if err := repo.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, func() {}, errb.Wrapf(err, "ensure indexes")
		}
		logger.WithField("database", cfg.MongoDatabase).Info("connected to mongodb")
		return repo, cleanup, nil

	case config.DriverPostgres:
		dsn := cfg.PostgresDSN()
		if err := pginfra.RunMigrations(dsn, cfg.MigrationsDir, logger); err != nil {
			return nil, func() {}, errb.Wrapf(err, "run migrations")
		}
		pool, err := pginfra.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, func() {}, errb.Wrapf(err, "connect postgres")
		}
		logger.WithField("database", cfg.DBName).Info("connected to postgres")
		return pginfra.NewUserRepository(pool, cfg.DBTimeout), pool.Close, nil

	default:
		return nil, func() {}, oops.Code("CONFIG_INVALID").In("storage").Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

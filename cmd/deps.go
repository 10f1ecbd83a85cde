package cmd

import (
	"context"
	"fmt"

	"booking-payments/internal/data/repository"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/database"
	"booking-payments/pkg/lock"
	"booking-payments/pkg/secure"
	"booking-payments/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type deps struct {
	db     database.PgxIface
	repo   *repository.Repository
	gw     gateway.API
	locker lock.Locker
	redis  *redis.Client
}

func (d *deps) Close() {
	if d.redis != nil {
		d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// buildDeps connects the database, optional Redis and the gateway client.
func buildDeps(ctx context.Context, config *utils.Config, logger *zap.Logger) (*deps, error) {
	sealer, err := secure.NewSealer(config.Security.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("credential key: %w", err)
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Database connected successfully")

	d := &deps{
		db:   db,
		repo: repository.NewRepository(db, sealer, logger),
		gw:   gateway.NewClient(config.Gateway.BaseURL, config.Gateway.Timeout, logger),
	}

	if config.Redis.Addr == "" {
		logger.Info("REDIS_ADDR not set, using in-process booking locks")
		d.locker = lock.NewLocalLocker()
		return d, nil
	}

	client, err := lock.NewRedisClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	d.redis = client
	d.locker = lock.NewRedisLocker(client, config.Reconcile.LockTTL, logger)

	return d, nil
}

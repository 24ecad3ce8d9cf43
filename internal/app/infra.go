package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Promise30/promise-auth/internal/config"
	"github.com/Promise30/promise-auth/internal/db"
	"github.com/Promise30/promise-auth/internal/redis"

	_ "github.com/lib/pq"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.RunBootstrapMigration(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("bootstrap migration: %w", err)
	}

	log.Info("database ready")

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("redis ready")

	return &Infra{
		DB:    &db.DB{DB: sqlDB},
		Redis: redisClient,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gitlab.com/dutbench.net/internal/adapter/postgres/outcomerepository"
	"gitlab.com/dutbench.net/internal/adapter/redis/runstateport"
	"gitlab.com/dutbench.net/internal/config"
	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
)

// stores holds the optional persistence backends. Nil fields are disabled.
type stores struct {
	db          *sqlx.DB
	redisClient *redis.Client
	outcomes    *outcomerepository.OutcomeRepository
	runStates   *runstateport.RunStateRepository
}

// setupStores connects whatever backends the configuration names.
// A backend that is configured but unreachable is an error.
func setupStores(ctx context.Context, cfg *config.AppConfig, logger primary.Logger) (*stores, error) {
	s := &stores{}

	if cfg.PostgresConfig.Url != "" {
		db, err := setupDatabase(ctx, cfg.PostgresConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		s.db = db
		s.outcomes = outcomerepository.NewOutcomeRepository(db, logger)
		if err := s.outcomes.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	if cfg.RedisConfig.Url != "" {
		client, err := setupRedis(ctx, cfg.RedisConfig, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up redis: %w", err)
		}
		s.redisClient = client
		s.runStates = runstateport.NewRunStateRepository(client, logger)
	}

	return s, nil
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
}

// outcomeRepository keeps a disabled store a nil interface
func (s *stores) outcomeRepository() secondary.OutcomeRepository {
	if s.outcomes == nil {
		return nil
	}
	return s.outcomes
}

func (s *stores) runStateRepository() secondary.RunStateRepository {
	if s.runStates == nil {
		return nil
	}
	return s.runStates
}

const (
	connectTimeout = 15 * time.Second
	pingTimeout    = 3 * time.Second
)

// retryConnect pings a backend with exponential backoff until it answers or connectTimeout passes
func retryConnect(ctx context.Context, logger primary.Logger, backend string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout

	operation := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return ping(pingCtx)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Backend not reachable yet", "backend", backend, "retryIn", next.String(), "error", err)
	})
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(ctx context.Context, cfg *config.PostgresConfig, logger primary.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := retryConnect(ctx, logger, "postgres", db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// setupRedis sets up the Redis connection
func setupRedis(ctx context.Context, cfg *config.RedisConfig, logger primary.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ping := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	if err := retryConnect(ctx, logger, "redis", ping); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

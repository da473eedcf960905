package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/config"
	"github.com/fyrsmithlabs/caselink/internal/logging"
	"github.com/fyrsmithlabs/caselink/internal/matcher"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   casestore.Store
	matcher *matcher.Matcher

	pool *pgxpool.Pool
	rdb  *redis.Client
}

// newApp loads config and wires the storage backend, processed set,
// logger and matcher.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN.Value())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		store, err := casestore.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.store = store
	default:
		a.store = casestore.NewInMemoryStore()
	}

	var processed casestore.ProcessedSet
	if cfg.Storage.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Storage.RedisAddr, err)
		}
		processed = casestore.NewRedisProcessedSet(a.rdb)
	} else {
		// Both store implementations track processed messages themselves.
		var ok bool
		processed, ok = a.store.(casestore.ProcessedSet)
		if !ok {
			a.close()
			return nil, fmt.Errorf("store backend %q cannot track processed messages", cfg.Storage.Backend)
		}
	}

	m, err := matcher.New(a.store, processed, matcher.Config{
		AutoAssignThreshold:        cfg.Matcher.AutoAssignThreshold,
		RecipientDamping:           cfg.Matcher.RecipientDamping,
		SubjectSimilarityThreshold: cfg.Matcher.SubjectSimilarityThreshold,
		MinPartialDigits:           cfg.Matcher.MinPartialDigits,
	}, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.matcher = m

	return a, nil
}

// close releases backend connections and flushes the logger.
func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.logger != nil {
		_ = logging.Sync(a.logger)
	}
}

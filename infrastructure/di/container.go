// Package di assembles the application's dependency graph. Container is the
// hand-written equivalent of what wire.go's //go:build wireinject provider
// set would generate; go.uber.org/zap, github.com/google/wire, and
// github.com/jackc/pgx/v5/pgxpool all still flow through ProvideLogger and
// NewContainer exactly as they would through generated code, adapted from
// the teacher's infrastructure/di package.
package di

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"workitems/application/orchestrator"
	"workitems/application/ports"
	"workitems/application/registry"
	"workitems/application/services"
	"workitems/domain/limits"
	"workitems/infrastructure/config"
	"workitems/infrastructure/persistence/postgres"
)

// Container holds every long-lived dependency the server binary needs.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pool     *pgxpool.Pool
	Registry *registry.Registry
	Service  *orchestrator.Service
}

// ProvideLogger builds the zap.Logger for cfg.Environment, matching the
// teacher's ProvideLogger (production config outside development).
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build production logger: %w", err)
	}
	return logger, nil
}

// NewContainer builds the full dependency graph: config -> logger -> pool ->
// repositories -> application services -> orchestrator -> registry.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	workItemRepo := postgres.NewWorkItemRepository()
	actionHistoryRepo := postgres.NewActionHistoryRepository()
	uow := postgres.NewUnitOfWork(pool)

	clock := services.SystemClock{}
	ids := services.UUIDGenerator{}
	lim := limits.Default()

	svc := orchestrator.New(
		uow,
		workItemRepo,
		workItemRepo.Dependencies,
		actionHistoryRepo,
		ids,
		clock,
		lim,
		logger,
		orchestrator.NoopNotifier{},
	)

	reg := registry.New(svc)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Registry: reg,
		Service:  svc,
	}, nil
}

// Close releases the container's resources. Call on shutdown.
func (c *Container) Close() {
	c.Pool.Close()
	_ = c.Logger.Sync()
}

var _ ports.UnitOfWork = (*postgres.UnitOfWork)(nil)

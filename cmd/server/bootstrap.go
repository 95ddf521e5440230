package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/orgcache/internal/api"
	"github.com/charlesng35/orgcache/internal/app"
	"github.com/charlesng35/orgcache/internal/app/maintenance"
	"github.com/charlesng35/orgcache/internal/cache"
	"github.com/charlesng35/orgcache/internal/database"
	"github.com/charlesng35/orgcache/internal/middleware"
	"github.com/charlesng35/orgcache/internal/monitoring"
	"github.com/charlesng35/orgcache/internal/monitoring/checks"
	"github.com/charlesng35/orgcache/internal/registry"
	"github.com/charlesng35/orgcache/internal/services"
)

const rateStoreSweepInterval = time.Minute

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Store     cache.Store
	Backend   string
	Source    *registry.HTTPSource
	Resolver  *services.Resolver
	Monitor   *monitoring.Module
	Scheduler *maintenance.Scheduler
	RateStore *middleware.MemoryRateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the record store, registry client, monitoring and the HTTP router.
// The database is always opened so the service can fall back to it when Redis is unreachable.
func bootstrapRuntime(_ context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbCfg := cfg.Database.ConnectionConfig()
	stack.DB, err = database.Prepare(dbCfg)
	if err != nil {
		return nil, err
	}
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	stack.Store = cache.NewDatabaseStore(stack.DB)
	stack.Backend = app.BackendDatabase

	if cfg.Cache.StoreBackend() == app.BackendRedis {
		if stack.Redis, err = cache.NewRedisStore(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database store", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			stack.Store = stack.Redis
			stack.Backend = app.BackendRedis
		}
	}

	stack.Source, err = registry.NewHTTPSource(cfg.Registry.SourceConfig(), &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("initialise registry client: %w", err)
	}

	stack.Resolver, err = services.NewResolver(stack.Store, stack.Source,
		services.WithFetchTimeout(cfg.Registry.Timeout),
		services.WithStoreTimeout(cfg.Cache.StoreTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise resolver: %w", err)
	}

	stack.Monitor, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitor)
	registerHealthChecks(stack)

	stack.Scheduler = maintenance.NewScheduler(stack.Store, maintenance.WithSchedule(cfg.Monitoring.StatsSchedule))
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if cfg.Server.RateLimit.Requests > 0 {
		stack.RateStore = middleware.NewMemoryRateStore(rateStoreSweepInterval)
	}

	var rateStore middleware.RateStore
	if stack.RateStore != nil {
		rateStore = stack.RateStore
	}

	stack.Router, err = api.NewRouter(cfg, stack.Resolver, stack.Monitor, rateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack) {
	health := stack.Monitor.Health()
	health.Describe("cache_backend", stack.Backend)
	health.Describe("registry", stack.Source.URL(":orgId"))

	var pinger checks.StorePinger
	if p, ok := stack.Store.(cache.Pinger); ok {
		pinger = p
	}
	health.RegisterReadiness(checks.Store(stack.Backend, pinger, 0))
	health.RegisterReadiness(checks.Registry(stack.Source, stack.Resolver))
	health.RegisterReadiness(checks.Maintenance(0))
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		stopCtx := s.Scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs did not stop before deadline")
		}
	}

	if s.RateStore != nil {
		s.RateStore.Close()
	}

	var err error
	if s.Redis != nil {
		err = multierr.Append(err, s.Redis.Close())
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
	}
	for _, e := range multierr.Errors(err) {
		log.Warn("shutdown release failed", zap.Error(e))
	}
}

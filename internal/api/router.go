package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/orgcache/internal/app"
	"github.com/charlesng35/orgcache/internal/handlers"
	"github.com/charlesng35/orgcache/internal/middleware"
	"github.com/charlesng35/orgcache/internal/monitoring"
)

// NewRouter builds the Gin engine, wires middleware and registers the service routes.
// A nil monitoring module disables health and metrics endpoints; a nil rate store
// disables rate limiting.
func NewRouter(cfg *app.Config, resolver handlers.OrganizationResolver, mon *monitoring.Module, rateStore middleware.RateStore) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if resolver == nil {
		return nil, fmt.Errorf("organization resolver must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, cfg, mon)

	if cfg.Monitoring.Prometheus.Enabled && mon != nil {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(mon.Handler()))
	}

	api := r.Group("/api")
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(mon, cfg))

	limited := r.Group("", middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	if err := registerOrganizationRoutes(limited, resolver, cfg.Registry.ValidateIDs); err != nil {
		return nil, err
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

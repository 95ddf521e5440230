package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/charlesng35/orgcache/internal/app"
	"github.com/charlesng35/orgcache/internal/monitoring"
)

func testConfig(t *testing.T, registryURL string) *app.Config {
	t.Helper()

	return &app.Config{
		Server: app.ServerConfig{
			Port:      8080,
			RateLimit: app.RateLimitConfig{Requests: 100, Window: time.Minute},
		},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "orgcache.sqlite"),
		},
		Cache: app.CacheConfig{Backend: app.BackendDatabase},
		Registry: app.RegistryConfig{
			BaseURL: registryURL,
			Timeout: 2 * time.Second,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus:    app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:        app.HealthConfig{Enabled: true},
			StatsSchedule: "@every 1h",
		},
	}
}

func TestBootstrapRuntimeServesOrganizations(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/999888777" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"navn":"Testbedrift AS"}`))
	}))
	t.Cleanup(upstream.Close)

	log := zaptest.NewLogger(t)
	stack, err := bootstrapRuntime(context.Background(), testConfig(t, upstream.URL), log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.Equal(t, app.BackendDatabase, stack.Backend)
	require.NotNil(t, stack.RateStore)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/org/999888777", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"navn":"Testbedrift AS"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/org/000000000", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Service map[string]string        `json:"service"`
		Checks  []monitoring.CheckResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, app.BackendDatabase, report.Service["cache_backend"])
	require.Equal(t, upstream.URL+"/:orgId", report.Service["registry"])
	require.Len(t, report.Checks, 3)
	require.Equal(t, "store", report.Checks[0].Component)
	require.Equal(t, app.BackendDatabase, report.Checks[0].Details)
	require.Equal(t, "registry", report.Checks[1].Component)
	require.Contains(t, report.Checks[1].Details, "0 waiting")
}

func TestBootstrapRuntimeFallsBackWhenRedisUnavailable(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Cache.Backend = app.BackendRedis
	cfg.Cache.Redis = app.RedisCacheConfig{Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}

	log := zaptest.NewLogger(t)
	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.Nil(t, stack.Redis)
	require.Equal(t, app.BackendDatabase, stack.Backend)
}

func TestBootstrapRuntimeRejectsInvalidRegistryURL(t *testing.T) {
	cfg := testConfig(t, "ftp://registry.invalid")

	_, err := bootstrapRuntime(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "registry")
}

func TestRunHelpFlag(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

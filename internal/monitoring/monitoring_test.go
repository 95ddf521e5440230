package monitoring_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/orgcache/internal/monitoring"
	"github.com/charlesng35/orgcache/internal/monitoring/checks"
)

func setupModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	return mod
}

func TestSummaryAggregatesMetrics(t *testing.T) {
	mod := setupModule(t)

	monitoring.RecordCacheLookup(monitoring.LookupHit)
	monitoring.RecordCacheLookup(monitoring.LookupHit)
	monitoring.RecordCacheLookup(monitoring.LookupHit)
	monitoring.RecordCacheLookup(monitoring.LookupMiss)
	monitoring.RecordCacheLookup(monitoring.LookupError)
	monitoring.RecordRegistryFetch(monitoring.FetchSuccess, "", 200*time.Millisecond)
	monitoring.RecordRegistryFetch(monitoring.FetchNotFound, "", 100*time.Millisecond)
	monitoring.RecordRegistryFetch(monitoring.FetchTimeout, "deadline exceeded", time.Second)
	monitoring.RecordCoalescedRequest()
	monitoring.RecordStoreWriteFailure()
	monitoring.SetCachedRecords(42)
	monitoring.RecordMaintenanceRun("cache_stats", "success", "", time.Second)

	summary := monitoring.Snapshot()
	require.Equal(t, uint64(3), summary.Cache.Hits)
	require.Equal(t, uint64(1), summary.Cache.Misses)
	require.Equal(t, uint64(1), summary.Cache.Errors)
	require.InDelta(t, 0.75, summary.Cache.HitRatio, 0.0001)
	require.Equal(t, int64(42), summary.Cache.CachedRecords)
	require.Equal(t, uint64(1), summary.Cache.StoreWriteFailures)

	require.Equal(t, uint64(1), summary.Registry.Success)
	require.Equal(t, uint64(1), summary.Registry.NotFound)
	require.Equal(t, uint64(1), summary.Registry.Timeout)
	require.Equal(t, uint64(1), summary.Registry.Coalesced)
	require.NotNil(t, summary.Registry.LastFailure)
	require.Equal(t, monitoring.FetchTimeout, summary.Registry.LastFailure.Type)
	require.InDelta(t, 0.4333, summary.Registry.AverageLatencySeconds, 0.001)

	require.Len(t, summary.Maintenance.Jobs, 1)
	require.Equal(t, mod.Summary().Cache.Hits, summary.Cache.Hits)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	mod := setupModule(t)
	monitoring.RecordCacheLookup(monitoring.LookupMiss)
	monitoring.ObserveAPILatency("get", "/org/:orgId", "200", 10*time.Millisecond)

	srv := httptest.NewServer(mod.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `orgcache_cache_lookups_total{result="miss"} 1`)
	require.Contains(t, string(body), `orgcache_api_latency_seconds_count{method="GET",path="org/:orgId",status="200"} 1`)
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.Describe("cache_backend", "redis")
	manager.RegisterReadiness(monitoring.NewCheck("store", func(ctx context.Context) monitoring.CheckResult {
		return monitoring.CheckResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("registry", func(ctx context.Context) monitoring.CheckResult {
		return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "slow"}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("", nil))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "store", report.Checks[0].Component)
	require.Equal(t, map[string]string{"cache_backend": "redis"}, report.Service)

	manager.Describe("cache_backend", "")
	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Equal(t, monitoring.StatusUp, live.Status)
	require.Nil(t, live.Service)
	require.Empty(t, live.Checks)
}

func TestHealthManagerRecoversPanickingCheck(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("store", func(context.Context) monitoring.CheckResult {
		panic("driver exploded")
	}))
	manager.RegisterReadiness(monitoring.NewCheck("empty", func(context.Context) monitoring.CheckResult {
		return monitoring.CheckResult{}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "store", report.Checks[0].Component)
	require.Equal(t, "driver exploded", report.Checks[0].Details)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
}

func TestWorse(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusDegraded, monitoring.Worse(monitoring.StatusUp, monitoring.StatusDegraded))
	require.Equal(t, monitoring.StatusDown, monitoring.Worse(monitoring.StatusDown, monitoring.StatusDegraded))
	require.Equal(t, monitoring.StatusUp, monitoring.Worse(monitoring.StatusUp, monitoring.StatusUp))
}

func TestMaintenanceCheck(t *testing.T) {
	setupModule(t)

	waiting := checks.Maintenance(0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, waiting.Status)

	monitoring.SetCachedRecords(7)
	monitoring.RecordMaintenanceRun("cache_stats", "success", "", time.Second)
	healthy := checks.Maintenance(time.Hour).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, healthy.Status)
	require.Equal(t, "7 cached records", healthy.Details)

	monitoring.RecordMaintenanceRun("store_ping", "failure", "connection refused", time.Second)
	failing := checks.Maintenance(time.Hour).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, failing.Status)
	require.Contains(t, failing.Details, "store_ping failed 1 times: connection refused")
}

func TestMaintenanceCheckStaleJob(t *testing.T) {
	setupModule(t)

	monitoring.RecordMaintenanceRun("cache_stats", "success", "", time.Second)
	time.Sleep(5 * time.Millisecond)

	result := checks.Maintenance(time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "cache_stats last succeeded")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStoreCheck(t *testing.T) {
	t.Parallel()

	missing := checks.Store("database", nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, missing.Status)

	down := checks.Store("redis", pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, down.Status)
	require.Equal(t, "redis: connection refused", down.Details)

	slow := checks.Store("database", pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, slow.Status)

	up := checks.Store("database", pingerFunc(func(context.Context) error { return nil }), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, up.Status)
	require.Equal(t, "database", up.Details)
}

type staticEndpoint string

func (s staticEndpoint) URL(id string) string { return string(s) + "/" + id }

type fixedQueue int64

func (q fixedQueue) Waiting() int64 { return int64(q) }

func TestRegistryCheck(t *testing.T) {
	setupModule(t)

	result := checks.Registry(staticEndpoint("https://registry.test/enheter"), fixedQueue(3)).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "https://registry.test/enheter/:orgId; 3 waiting", result.Details)

	monitoring.RecordRegistryFetch(monitoring.FetchUnavailable, "unexpected status 503", time.Millisecond)
	result = checks.Registry(staticEndpoint("https://registry.test/enheter"), nil).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "last unavailable at ")

	result = checks.Registry(nil, nil).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

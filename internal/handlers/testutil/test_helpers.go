package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/orgcache/internal/api"
	"github.com/charlesng35/orgcache/internal/app"
	"github.com/charlesng35/orgcache/internal/cache"
	sharedtestutil "github.com/charlesng35/orgcache/internal/database/testutil"
	"github.com/charlesng35/orgcache/internal/monitoring"
	"github.com/charlesng35/orgcache/internal/monitoring/checks"
	"github.com/charlesng35/orgcache/internal/registry"
	"github.com/charlesng35/orgcache/internal/services"
	"github.com/charlesng35/orgcache/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// and a fake upstream registry.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Store    *cache.DatabaseStore
	Router   *gin.Engine
	Module   *monitoring.Module
	Config   *app.Config
	Registry *FakeRegistry
}

// EnvOption customises the environment before the router is built.
type EnvOption func(*app.Config)

// WithConfig mutates the default test configuration.
func WithConfig(fn func(*app.Config)) EnvOption {
	return fn
}

// NewEnv provisions a fresh test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)

	fake := NewFakeRegistry(t)

	cfg := &app.Config{
		Registry: app.RegistryConfig{
			BaseURL:     fake.URL(),
			Timeout:     2 * time.Second,
			ValidateIDs: true,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	source, err := registry.NewHTTPSource(cfg.Registry.SourceConfig(), fake.Client())
	require.NoError(t, err)

	resolver, err := services.NewResolver(store, source, services.WithFetchTimeout(cfg.Registry.Timeout))
	require.NoError(t, err)

	mod, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	mod.Health().Describe("cache_backend", app.BackendDatabase)
	mod.Health().RegisterReadiness(checks.Store(app.BackendDatabase, store, time.Second))
	mod.Health().RegisterReadiness(checks.Registry(source, resolver))
	// Instrumentation helpers report to the process-wide module, so tests
	// built on Env must not run in parallel.
	monitoring.SetModule(mod)

	router, err := api.NewRouter(cfg, resolver, mod, nil)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Store:    store,
		Router:   router,
		Module:   mod,
		Config:   cfg,
		Registry: fake,
	}
}

// Request executes an HTTP request against the router and returns the recorder.
func (e *Env) Request(method, path string) *httptest.ResponseRecorder {
	e.T.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// DecodeResponse converts an error envelope into a response.Response for assertions.
func DecodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// FakeRegistry serves organization documents keyed by id over HTTP.
type FakeRegistry struct {
	server *httptest.Server

	mu     sync.RWMutex
	docs   map[string]string
	status map[string]int
	calls  atomic.Int64
}

// NewFakeRegistry starts an upstream registry that answers 404 for unknown ids.
func NewFakeRegistry(t *testing.T) *FakeRegistry {
	t.Helper()

	f := &FakeRegistry{
		docs:   make(map[string]string),
		status: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	id := strings.Trim(r.URL.Path, "/")
	f.mu.RLock()
	doc, ok := f.docs[id]
	status, failing := f.status[id]
	f.mu.RUnlock()

	switch {
	case failing:
		w.WriteHeader(status)
	case ok:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}

// URL returns the base URL of the fake registry.
func (f *FakeRegistry) URL() string {
	return f.server.URL
}

// Client returns an HTTP client bound to the fake server.
func (f *FakeRegistry) Client() *http.Client {
	return f.server.Client()
}

// SetDocument registers the JSON document returned for id.
func (f *FakeRegistry) SetDocument(id, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = doc
	delete(f.status, id)
}

// FailWith makes the registry answer id with the given status code.
func (f *FakeRegistry) FailWith(id string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = status
}

// Calls reports how many requests reached the registry.
func (f *FakeRegistry) Calls() int64 {
	return f.calls.Load()
}

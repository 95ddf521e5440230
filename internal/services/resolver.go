package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/orgcache/internal/cache"
	"github.com/charlesng35/orgcache/internal/monitoring"
	"github.com/charlesng35/orgcache/internal/registry"
	"github.com/charlesng35/orgcache/pkg/logger"
)

const (
	// DefaultFetchTimeout bounds a registry fetch when no timeout is configured.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultStoreTimeout bounds each store call made on behalf of a shared fetch.
	DefaultStoreTimeout = 5 * time.Second
)

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithFetchTimeout bounds every registry fetch.
func WithFetchTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.fetchTimeout = timeout
		}
	}
}

// WithStoreTimeout bounds the store lookup and write performed inside a shared fetch.
func WithStoreTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.storeTimeout = timeout
		}
	}
}

// WithLogger overrides the resolver logger.
func WithLogger(log *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// Resolver serves organization documents from the store and fills misses from the registry.
//
// Concurrent misses for one id share a single registry fetch. Only successful fetches are
// stored; not-found answers and failures leave the store untouched so the id can be retried.
type Resolver struct {
	store        cache.Store
	source       registry.Source
	flights      singleflight.Group
	fetchTimeout time.Duration
	storeTimeout time.Duration
	waiting      atomic.Int64
	log          *zap.Logger
}

// NewResolver constructs a Resolver over store and source.
func NewResolver(store cache.Store, source registry.Source, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("resolver: store is required")
	}
	if source == nil {
		return nil, errors.New("resolver: registry source is required")
	}

	r := &Resolver{
		store:        store,
		source:       source,
		fetchTimeout: DefaultFetchTimeout,
		storeTimeout: DefaultStoreTimeout,
		log:          logger.WithModule("resolver"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

type flightResult struct {
	value json.RawMessage
}

// Resolve returns the document for id, fetching and storing it on first use.
//
// A caller whose ctx ends while waiting on a fetch returns ctx.Err(); the fetch keeps
// running for the other waiters and is stored if it succeeds.
func (r *Resolver) Resolve(ctx context.Context, id string) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)

	value, found, err := r.store.Get(ctx, id)
	if err != nil {
		monitoring.RecordCacheLookup(monitoring.LookupError)
		r.log.Warn("store lookup failed", zap.String("org_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if found {
		monitoring.RecordCacheLookup(monitoring.LookupHit)
		r.log.Debug("cache hit", zap.String("org_id", id))
		return json.RawMessage(value), nil
	}
	monitoring.RecordCacheLookup(monitoring.LookupMiss)

	// led is written by the flight goroutine before the result is delivered on ch.
	led := false
	ch := r.flights.DoChan(id, func() (interface{}, error) {
		led = true
		// The flight outlives any single caller; the fetch and store timeouts bound it.
		return r.fill(context.WithoutCancel(ctx), id)
	})
	r.waiting.Add(1)
	defer r.waiting.Add(-1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared && !led {
			monitoring.RecordCoalescedRequest()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(flightResult).value, nil
	}
}

// Waiting reports how many callers have joined a registry fetch that has not yet delivered.
func (r *Resolver) Waiting() int64 {
	return r.waiting.Load()
}

// fill runs once per in-flight id.
func (r *Resolver) fill(ctx context.Context, id string) (flightResult, error) {
	// A flight for id may have completed between the caller's miss and this one starting.
	getCtx, cancelGet := context.WithTimeout(ctx, r.storeTimeout)
	value, found, err := r.store.Get(getCtx, id)
	cancelGet()
	if err != nil {
		r.log.Warn("store lookup failed", zap.String("org_id", id), zap.Error(err))
		return flightResult{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if found {
		return flightResult{value: json.RawMessage(value)}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	start := time.Now()
	payload, err := r.source.Fetch(fetchCtx, id)
	elapsed := time.Since(start)
	if err != nil {
		return flightResult{}, r.fetchFailed(id, err, fetchCtx.Err(), elapsed)
	}

	monitoring.RecordRegistryFetch(monitoring.FetchSuccess, "", elapsed)
	r.log.Debug("fetched organization from registry", zap.String("org_id", id), zap.Duration("duration", elapsed))

	putCtx, cancelPut := context.WithTimeout(ctx, r.storeTimeout)
	defer cancelPut()
	if err := r.store.Put(putCtx, id, payload); err != nil {
		monitoring.RecordStoreWriteFailure()
		r.log.Warn("failed to store fetched organization", zap.String("org_id", id), zap.Error(err))
	}
	return flightResult{value: json.RawMessage(payload)}, nil
}

func (r *Resolver) fetchFailed(id string, err, ctxErr error, elapsed time.Duration) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		monitoring.RecordRegistryFetch(monitoring.FetchNotFound, "", elapsed)
		r.log.Debug("organization not found in registry", zap.String("org_id", id))
		return fmt.Errorf("%w: %s", ErrOrganizationNotFound, id)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded):
		monitoring.RecordRegistryFetch(monitoring.FetchTimeout, err.Error(), elapsed)
		r.log.Warn("registry fetch timed out", zap.String("org_id", id), zap.Duration("timeout", r.fetchTimeout))
		return fmt.Errorf("%w: %v", ErrRegistryTimeout, err)
	default:
		monitoring.RecordRegistryFetch(monitoring.FetchUnavailable, err.Error(), elapsed)
		r.log.Warn("registry fetch failed", zap.String("org_id", id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
}

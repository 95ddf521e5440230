package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/orgcache/internal/cache"
	"github.com/charlesng35/orgcache/internal/monitoring"
	"github.com/charlesng35/orgcache/pkg/logger"
)

const (
	defaultStatsSpec = "@every 1m"
	defaultJobBudget = 30 * time.Second

	JobCacheStats = "cache_stats"
	JobStorePing  = "store_ping"
)

// Scheduler runs periodic jobs against the record store: counting cached records
// and probing the backend. Records are never deleted.
type Scheduler struct {
	counter cache.Counter
	pinger  cache.Pinger
	cron    *cron.Cron
	log     *zap.Logger
	budget  time.Duration
	spec    string
	enabled bool
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSchedule overrides the cron specification shared by the jobs.
func WithSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.spec = spec
		}
	}
}

// WithJobBudget bounds how long a single job run may take.
func WithJobBudget(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.budget = d
		}
	}
}

// NewScheduler inspects store for the optional Counter and Pinger capabilities.
// Jobs whose capability is missing are skipped.
func NewScheduler(store cache.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		spec:   defaultStatsSpec,
		budget: defaultJobBudget,
		log:    logger.WithModule("maintenance"),
	}
	if counter, ok := store.(cache.Counter); ok {
		s.counter = counter
	}
	if pinger, ok := store.(cache.Pinger); ok {
		s.pinger = pinger
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	s.enabled = s.counter != nil || s.pinger != nil
	return s
}

// Start registers jobs with the cron scheduler and launches it when at least one job is enabled.
func (s *Scheduler) Start() error {
	if !s.enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every enabled job sequentially and aggregates their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.counter != nil {
		errs = multierr.Append(errs, s.run(ctx, JobCacheStats, s.countRecords))
	}
	if s.pinger != nil {
		errs = multierr.Append(errs, s.run(ctx, JobStorePing, s.pinger.Ping))
	}
	return errs
}

func (s *Scheduler) countRecords(ctx context.Context) error {
	count, err := s.counter.Count(ctx)
	if err != nil {
		return err
	}
	monitoring.SetCachedRecords(count)
	s.log.Debug("cached records counted", zap.Int64("count", count))
	return nil
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		monitoring.RecordMaintenanceRun(job, "failure", err.Error(), duration)
		return fmt.Errorf("maintenance: %s: %w", job, err)
	}
	monitoring.RecordMaintenanceRun(job, "success", "", duration)
	return nil
}

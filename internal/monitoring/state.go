package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	lookupHits   atomic.Uint64
	lookupMisses atomic.Uint64
	lookupErrors atomic.Uint64

	fetchSuccess     atomic.Uint64
	fetchNotFound    atomic.Uint64
	fetchUnavailable atomic.Uint64
	fetchTimeout     atomic.Uint64
	fetchTotalNs     atomic.Uint64
	fetchLastFailure atomic.Value // *FailureRecord

	coalesced          atomic.Uint64
	storeWriteFailures atomic.Uint64
	cachedRecords      atomic.Int64

	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	store := &statStore{}
	store.fetchLastFailure.Store((*FailureRecord)(nil))
	return store
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	return summaries
}

func (s *statStore) summary() Summary {
	lastFailure, _ := s.fetchLastFailure.Load().(*FailureRecord)

	hits := s.lookupHits.Load()
	misses := s.lookupMisses.Load()
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	success := s.fetchSuccess.Load()
	notFound := s.fetchNotFound.Load()
	unavailable := s.fetchUnavailable.Load()
	timeout := s.fetchTimeout.Load()
	var avgSeconds float64
	if total := success + notFound + unavailable + timeout; total > 0 {
		avgSeconds = float64(s.fetchTotalNs.Load()) / float64(total) / float64(time.Second)
	}

	return Summary{
		GeneratedAt: time.Now(),
		Cache: CacheSummary{
			Hits:               hits,
			Misses:             misses,
			Errors:             s.lookupErrors.Load(),
			HitRatio:           ratio,
			CachedRecords:      s.cachedRecords.Load(),
			StoreWriteFailures: s.storeWriteFailures.Load(),
		},
		Registry: RegistrySummary{
			Success:               success,
			NotFound:              notFound,
			Unavailable:           unavailable,
			Timeout:               timeout,
			Coalesced:             s.coalesced.Load(),
			AverageLatencySeconds: avgSeconds,
			LastFailure:           lastFailure,
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) recordLookup(result string) {
	switch result {
	case LookupHit:
		s.lookupHits.Add(1)
	case LookupMiss:
		s.lookupMisses.Add(1)
	default:
		s.lookupErrors.Add(1)
	}
}

func (s *statStore) recordFetch(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	s.fetchTotalNs.Add(uint64(duration))

	switch result {
	case FetchSuccess:
		s.fetchSuccess.Add(1)
		return
	case FetchNotFound:
		// An unknown organization is an answer, not a registry failure.
		s.fetchNotFound.Add(1)
		return
	case FetchTimeout:
		s.fetchTimeout.Add(1)
	default:
		s.fetchUnavailable.Add(1)
	}

	s.fetchLastFailure.Store(&FailureRecord{
		Type:     result,
		Message:  message,
		Occurred: time.Now(),
	})
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           unixNanoTime(m.lastRun.Load()),
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       unixNanoTime(m.lastSuccessfulRun.Load()),
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}

func unixNanoTime(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(0, value)
}

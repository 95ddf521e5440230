package monitoring

import "time"

// Summary surfaces aggregated cache and registry statistics for operators.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Cache       CacheSummary       `json:"cache"`
	Registry    RegistrySummary    `json:"registry"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

type CacheSummary struct {
	Hits               uint64  `json:"hits"`
	Misses             uint64  `json:"misses"`
	Errors             uint64  `json:"errors"`
	HitRatio           float64 `json:"hit_ratio"`
	CachedRecords      int64   `json:"cached_records"`
	StoreWriteFailures uint64  `json:"store_write_failures"`
}

type FailureRecord struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred_at"`
}

type RegistrySummary struct {
	Success               uint64         `json:"success"`
	NotFound              uint64         `json:"not_found"`
	Unavailable           uint64         `json:"unavailable"`
	Timeout               uint64         `json:"timeout"`
	Coalesced             uint64         `json:"coalesced"`
	AverageLatencySeconds float64        `json:"average_latency_seconds"`
	LastFailure           *FailureRecord `json:"last_failure,omitempty"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := ensureModule(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}

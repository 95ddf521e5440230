package monitoring

import (
	"strings"
	"time"
)

// Lookup results reported by RecordCacheLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Fetch results reported by RecordRegistryFetch.
const (
	FetchSuccess     = "success"
	FetchNotFound    = "not_found"
	FetchUnavailable = "unavailable"
	FetchTimeout     = "timeout"
)

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordCacheLookup counts a store lookup by result (hit, miss or error).
func RecordCacheLookup(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.cacheLookups.WithLabelValues(label).Inc()
	module.stats.recordLookup(label)
}

// RecordRegistryFetch records the outcome and latency of a registry fetch.
func RecordRegistryFetch(result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.registryFetches.WithLabelValues(label).Inc()
	observeDuration(module.metrics.registryLatency, duration)
	module.stats.recordFetch(label, strings.TrimSpace(message), duration)
}

// RecordCoalescedRequest counts a caller that joined a fetch started by another request.
func RecordCoalescedRequest() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.coalescedRequests.Inc()
	module.stats.coalesced.Add(1)
}

// RecordStoreWriteFailure counts a fetched document that could not be persisted.
func RecordStoreWriteFailure() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.storeWriteFailures.Inc()
	module.stats.storeWriteFailures.Add(1)
}

// SetCachedRecords publishes the number of records held by the store.
func SetCachedRecords(count int64) {
	module := ensureModule()
	if module == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	module.metrics.cachedRecords.Set(float64(count))
	module.stats.cachedRecords.Store(count)
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

func sanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	return normalizePath(path)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, " ", "_")
	if path == "" {
		return "root"
	}
	return path
}

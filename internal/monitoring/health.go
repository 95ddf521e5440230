package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// HealthStatus encodes the outcome of a health check.
type HealthStatus string

const (
	StatusUp       HealthStatus = "up"
	StatusDegraded HealthStatus = "degraded"
	StatusDown     HealthStatus = "down"
)

func (s HealthStatus) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns the more severe of two statuses. Unknown statuses count as down.
func Worse(a, b HealthStatus) HealthStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// CheckResult captures a single dependency check outcome.
type CheckResult struct {
	Component string        `json:"component"`
	Status    HealthStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport is the outcome of one liveness or readiness evaluation. Service carries
// static facts about the running instance such as the store backend.
type HealthReport struct {
	Success bool              `json:"success"`
	Status  HealthStatus       `json:"status"`
	Service map[string]string `json:"service,omitempty"`
	Checks  []CheckResult     `json:"checks"`
}

// Check is a named dependency check.
type Check struct {
	Name string
	Run  func(ctx context.Context) CheckResult
}

// NewCheck constructs a health check. A nil fn yields a check that always reports down.
func NewCheck(name string, fn func(ctx context.Context) CheckResult) Check {
	if fn == nil {
		fn = func(context.Context) CheckResult {
			return CheckResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager holds the checks and service attributes reported by the health endpoints.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
	service   map[string]string
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{service: make(map[string]string)}
}

// Describe records a service attribute included in every report, e.g. the store backend.
// An empty value removes the attribute.
func (m *HealthManager) Describe(key, value string) {
	if key == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.service, key)
		return
	}
	m.service[key] = value
}

// RegisterLiveness appends a liveness check. Unnamed checks are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveness = append(m.liveness, check)
}

// RegisterReadiness appends a readiness check. Unnamed checks are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readiness = append(m.readiness, check)
}

// EvaluateLiveness runs the liveness checks.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.liveness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

// EvaluateReadiness runs the readiness checks.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.readiness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

func (m *HealthManager) evaluate(ctx context.Context, checks []Check) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	status := StatusUp
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		result := runCheck(ctx, check)
		status = Worse(status, result.Status)
		results = append(results, result)
	}

	return HealthReport{
		Success: status == StatusUp,
		Status:  status,
		Service: m.serviceSnapshot(),
		Checks:  results,
	}
}

func (m *HealthManager) serviceSnapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.service) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.service))
	for key, value := range m.service {
		out[key] = value
	}
	return out
}

// runCheck executes one check, turning a panic into a down result.
func runCheck(ctx context.Context, check Check) (result CheckResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = CheckResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()
	return check.Run(ctx)
}

// ResultFromError converts a check error into a result. Deadlines and cancellation
// degrade rather than fail the component.
func ResultFromError(component string, err error, duration time.Duration) CheckResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return CheckResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return CheckResult{Component: component, Status: status, Details: err.Error(), Duration: duration}
}

package checks

import (
	"context"
	"time"

	"github.com/charlesng35/orgcache/internal/monitoring"
)

const defaultStoreTimeout = 2 * time.Second

// StorePinger is implemented by every record store backend.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Store returns a readiness check that pings the active record store. backend names the
// implementation in the check details.
func Store(backend string, store StorePinger, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	return monitoring.NewCheck("store", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if store == nil {
			return monitoring.CheckResult{
				Status:  monitoring.StatusDown,
				Details: "record store not configured",
			}
		}

		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := store.Ping(checkCtx); err != nil {
			result := monitoring.ResultFromError("store", err, time.Since(start))
			result.Details = backend + ": " + result.Details
			return result
		}
		return monitoring.CheckResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Duration: time.Since(start),
		}
	})
}

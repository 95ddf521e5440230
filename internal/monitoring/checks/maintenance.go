package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/orgcache/internal/monitoring"
)

// Maintenance reports on the scheduled store jobs. A job that keeps failing takes the
// store down; one without a success inside maxAge is degraded. A healthy result
// carries the last cached record count.
func Maintenance(maxAge time.Duration) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.CheckResult {
		summary := monitoring.Snapshot()
		if len(summary.Maintenance.Jobs) == 0 {
			return monitoring.CheckResult{
				Status:  monitoring.StatusUp,
				Details: "waiting for first run",
			}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string
		for _, job := range summary.Maintenance.Jobs {
			switch {
			case job.ConsecutiveFailures > 0:
				status = monitoring.Worse(status, monitoring.StatusDown)
				problems = append(problems, fmt.Sprintf("%s failed %d times: %s", job.Job, job.ConsecutiveFailures, job.LastError))
			case maxAge > 0 && !job.LastSuccessAt.IsZero() && now.Sub(job.LastSuccessAt) > maxAge:
				status = monitoring.Worse(status, monitoring.StatusDegraded)
				problems = append(problems, fmt.Sprintf("%s last succeeded %s ago", job.Job, now.Sub(job.LastSuccessAt).Round(time.Second)))
			}
		}

		if len(problems) > 0 {
			return monitoring.CheckResult{Status: status, Details: strings.Join(problems, "; ")}
		}
		return monitoring.CheckResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d cached records", summary.Cache.CachedRecords),
		}
	})
}

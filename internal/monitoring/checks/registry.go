package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlesng35/orgcache/internal/monitoring"
)

// RegistryEndpoint exposes the address the registry client queries.
type RegistryEndpoint interface {
	URL(id string) string
}

// FetchQueue reports callers currently waiting on registry fetches.
type FetchQueue interface {
	Waiting() int64
}

// Registry reports the registry endpoint, the fetch queue and the most recent fetch failure.
// It never calls the upstream registry, so health checks cannot consume its request quota.
func Registry(source RegistryEndpoint, queue FetchQueue) monitoring.Check {
	return monitoring.NewCheck("registry", func(context.Context) monitoring.CheckResult {
		if source == nil {
			return monitoring.CheckResult{
				Status:  monitoring.StatusDown,
				Details: "registry client not configured",
			}
		}

		parts := []string{source.URL(":orgId")}
		if queue != nil {
			parts = append(parts, fmt.Sprintf("%d waiting", queue.Waiting()))
		}
		if failure := monitoring.Snapshot().Registry.LastFailure; failure != nil {
			parts = append(parts, fmt.Sprintf("last %s at %s", failure.Type, failure.Occurred.UTC().Format("2006-01-02T15:04:05Z")))
		}

		return monitoring.CheckResult{
			Status:  monitoring.StatusUp,
			Details: strings.Join(parts, "; "),
		}
	})
}

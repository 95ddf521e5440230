package app

import (
	"strings"

	"github.com/charlesng35/orgcache/internal/registry"
)

// SourceConfig converts the registry settings into the registry client representation.
func (c RegistryConfig) SourceConfig() registry.Config {
	return registry.Config{
		BaseURL:      strings.TrimSpace(c.BaseURL),
		Resource:     strings.TrimSpace(c.Resource),
		Timeout:      c.Timeout,
		MaxBodyBytes: c.MaxBodyBytes,
		UserAgent:    strings.TrimSpace(c.UserAgent),
	}
}

package app

import (
	"strings"

	"github.com/charlesng35/orgcache/internal/cache"
)

// Store backends accepted by cache.backend.
const (
	BackendDatabase = "database"
	BackendRedis    = "redis"
)

// StoreBackend returns the normalised backend name; empty means database.
func (c CacheConfig) StoreBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return BackendDatabase
	}
	return backend
}

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

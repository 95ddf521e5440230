package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBaseURL points at the Brønnøysund Enhetsregisteret entity endpoint.
const (
	DefaultBaseURL      = "https://data.brreg.no/enhetsregisteret/api/enheter"
	DefaultResource     = "roller"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 4 << 20
	DefaultUserAgent    = "orgcache/1.0"
)

// ErrNotFound reports that the registry has no record for the requested id.
var ErrNotFound = errors.New("registry: organization not found")

// Source looks up organization documents in a remote registry.
//
// Fetch returns the raw JSON document, ErrNotFound, or a *TransientError. A context
// deadline surfaces as an error wrapping context.DeadlineExceeded.
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// TransientError describes a failure that may succeed on a later attempt.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("registry: transient failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("registry: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a *TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Config describes how the HTTP registry client reaches the upstream service.
type Config struct {
	BaseURL      string
	Resource     string
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

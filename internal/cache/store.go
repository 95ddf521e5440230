package cache

import "context"

// Store persists organization documents keyed by organization id.
//
// Put has insert-if-absent semantics: the first successful Put for a key wins and every
// later Put for the same key is a no-op success. Records are never overwritten or removed.
type Store interface {
	// Get returns the stored document and true, or false when the key is absent.
	// An error always means the lookup itself failed, never a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Counter is implemented by stores able to report how many records they hold.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Pinger is implemented by stores that can verify connectivity to their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

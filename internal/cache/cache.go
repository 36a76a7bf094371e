package cache

import "time"

// Options controls how long a record lives and which invalidation tags
// it carries.
type Options struct {
	TTL  time.Duration
	Tags []string
}

// Store is the cache collaborator the pipeline writes per-URL extraction
// results through. Get returns false for missing or expired keys.
// Implementations provide no per-key locking; concurrent misses for the
// same key may both compute and store, which is fine because stores are
// idempotent overwrites.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, opts Options)
	InvalidateTag(tag string) error
}

// Package cache provides the TTL-based record store the pipeline
// memoizes per-URL extraction results in, with in-memory and sqlite
// backends.
package cache

// Package kv defines the synchronous key-value surface the todo store
// persists through, with a file-backed implementation for normal use and
// an in-memory one for tests.
package kv

// Backend is a minimal synchronous key-value store. Values are opaque
// strings; the caller decides their format.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been set.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value. The write
	// completes before Set returns.
	Set(key, value string) error

	// Path describes where this backend keeps its data, for logging and
	// file watching. In-memory backends return ":memory:".
	Path(key string) string
}

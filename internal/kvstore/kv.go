// Package kvstore provides string key-value stores and a storage.Store
// built on top of them.
package kvstore

import "context"

// KV is a minimal string key-value store
type KV interface {
	// Get returns the value and true, or false when the key is absent
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error
}

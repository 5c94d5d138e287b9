package kv

import (
	"context"
)

// Repository reads and writes opaque values by key.
type Repository interface {
	// Get returns the stored value, or (nil, nil) if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set inserts or overwrites the value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

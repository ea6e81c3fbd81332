package storage

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: kv closed")
)

// Writer is the mutation surface handed to a batch. *badger.Txn satisfies it.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// KV is a small embedded key-value store.
//
// Implementations must be safe for concurrent use. Batch applies all of its
// writes atomically or none of them.
type KV interface {
	// Get returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	// Delete does not fail for a missing key.
	Delete(ctx context.Context, key []byte) error
	Batch(ctx context.Context, fn func(w Writer) error) error
	Stats(ctx context.Context) (*KVStats, error)
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// Keys is the number of live keys.
	Keys uint64
	// TotalSize is the on-disk size in bytes (0 for memory stores).
	TotalSize uint64
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Engine is "badger" or "memory".
	Engine string
	// Dir is the storage directory. Ignored by the memory engine.
	Dir string
	// SyncWrites fsyncs after each write.
	SyncWrites bool
	// InMemory runs badger without touching disk (tests).
	InMemory bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine:     "badger",
		Dir:        dir,
		SyncWrites: true,
	}
}

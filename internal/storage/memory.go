package storage

import (
	"context"
	"sync"
)

// MemoryKV is a map-backed KV used for ephemeral sessions and tests.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value []byte) error {
	return m.Batch(ctx, func(w Writer) error { return w.Set(key, value) })
}

func (m *MemoryKV) Delete(ctx context.Context, key []byte) error {
	return m.Batch(ctx, func(w Writer) error { return w.Delete(key) })
}

// Batch stages writes and applies them only if fn succeeds.
func (m *MemoryKV) Batch(ctx context.Context, fn func(w Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	staged := &memoryBatch{ops: make(map[string][]byte)}
	if err := fn(staged); err != nil {
		return err
	}
	for k, v := range staged.ops {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = v
	}
	return nil
}

func (m *MemoryKV) Stats(ctx context.Context) (*KVStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &KVStats{Keys: uint64(len(m.data))}, nil
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memoryBatch records the last write per key; a nil value means delete.
type memoryBatch struct {
	ops map[string][]byte
}

func (b *memoryBatch) Set(key, value []byte) error {
	b.ops[string(key)] = append([]byte{}, value...)
	return nil
}

func (b *memoryBatch) Delete(key []byte) error {
	b.ops[string(key)] = nil
	return nil
}

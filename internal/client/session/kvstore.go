package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/medpanel/medpanel-go/internal/storage"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
	"github.com/medpanel/medpanel-go/pkg/crypto/sealer"
)

// KVStore persists the credential in an embedded KV engine, optionally
// sealed at rest. Token and user are written and cleared in one batch.
type KVStore struct {
	kv      storage.KV
	sealer  *sealer.Sealer
	metrics *metric.Registry
}

// KVStoreOption configures a KVStore.
type KVStoreOption func(*KVStore)

// WithSealer encrypts values at rest. The key name is bound as additional
// data, so a sealed token cannot be swapped in as the user snapshot.
func WithSealer(s *sealer.Sealer) KVStoreOption {
	return func(st *KVStore) { st.sealer = s }
}

// WithStoreMetrics counts credential operations.
func WithStoreMetrics(m *metric.Registry) KVStoreOption {
	return func(st *KVStore) { st.metrics = m }
}

// NewKVStore wraps kv. The store does not own kv; callers close it.
func NewKVStore(kv storage.KV, opts ...KVStoreOption) *KVStore {
	s := &KVStore{kv: kv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVStore) Get(ctx context.Context) (*Credential, error) {
	token, err := s.read(ctx, KeyToken)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}

	user, err := s.read(ctx, KeyUser)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, err
	}

	return &Credential{Token: string(token), User: user}, nil
}

func (s *KVStore) Set(ctx context.Context, cred Credential) error {
	if cred.Token == "" {
		return errors.New("session: empty token")
	}
	s.metrics.IncCredentialOp("set")

	token, err := s.seal(KeyToken, []byte(cred.Token))
	if err != nil {
		return err
	}
	var user []byte
	if len(cred.User) > 0 {
		if user, err = s.seal(KeyUser, cred.User); err != nil {
			return err
		}
	}

	return s.kv.Batch(ctx, func(w storage.Writer) error {
		if err := w.Set([]byte(KeyToken), token); err != nil {
			return err
		}
		if user == nil {
			return w.Delete([]byte(KeyUser))
		}
		return w.Set([]byte(KeyUser), user)
	})
}

func (s *KVStore) Clear(ctx context.Context) error {
	s.metrics.IncCredentialOp("clear")

	return s.kv.Batch(ctx, func(w storage.Writer) error {
		if err := w.Delete([]byte(KeyToken)); err != nil {
			return err
		}
		return w.Delete([]byte(KeyUser))
	})
}

func (s *KVStore) read(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.kv.Get(ctx, []byte(key))
	if err != nil {
		return nil, err
	}
	if s.sealer == nil {
		return raw, nil
	}
	plain, err := s.sealer.Open(raw, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", key, err)
	}
	return plain, nil
}

func (s *KVStore) seal(key string, value []byte) ([]byte, error) {
	if s.sealer == nil {
		return value, nil
	}
	sealed, err := s.sealer.Seal(value, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("session: seal %s: %w", key, err)
	}
	return sealed, nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Fixed keys of the credential record.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNoCredential is returned by Store.Get when nobody is logged in.
var ErrNoCredential = errors.New("session: no credential")

// Credential is the locally stored session: the bearer token and a raw
// snapshot of the user object returned at login.
type Credential struct {
	Token string
	User  json.RawMessage
}

// Store persists the single active credential record.
//
// Implementations must be safe for concurrent use. Set replaces any existing
// record wholesale; Clear removes both keys and is a no-op when empty.
type Store interface {
	Get(ctx context.Context) (*Credential, error)
	Set(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, ErrNoCredential
	}
	c := cloneCredential(*s.cred)
	return &c, nil
}

func (s *MemoryStore) Set(ctx context.Context, cred Credential) error {
	if cred.Token == "" {
		return errors.New("session: empty token")
	}
	c := cloneCredential(cred)
	s.mu.Lock()
	s.cred = &c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
	return nil
}

func cloneCredential(c Credential) Credential {
	if c.User != nil {
		c.User = append(json.RawMessage(nil), c.User...)
	}
	return c
}

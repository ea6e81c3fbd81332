package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/medpanel/medpanel-go/internal/storage"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
	"github.com/medpanel/medpanel-go/pkg/crypto/sealer"
)

var testMasterKey = []byte("0123456789abcdef0123456789abcdef")

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()

	s, err := sealer.New(testMasterKey, "medpanel/session")
	if err != nil {
		t.Fatal(err)
	}

	bkv, err := storage.NewBadgerKV(storage.DefaultKVConfig(t.TempDir()), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bkv.Close() })

	return map[string]Store{
		"memory":        NewMemoryStore(),
		"kv-plain":      NewKVStore(storage.NewMemoryKV()),
		"kv-sealed":     NewKVStore(storage.NewMemoryKV(), WithSealer(s)),
		"badger-sealed": NewKVStore(bkv, WithSealer(s), WithStoreMetrics(metric.NewRegistry())),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx); !errors.Is(err, ErrNoCredential) {
				t.Fatalf("Get() on empty store error = %v, want ErrNoCredential", err)
			}

			user := json.RawMessage(`{"id":"u1","email":"a@b.c","access_token":"T1"}`)
			if err := store.Set(ctx, Credential{Token: "T1", User: user}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Token != "T1" {
				t.Errorf("Token = %q, want T1", got.Token)
			}
			if !bytes.Equal(got.User, user) {
				t.Errorf("User = %s, want %s", got.User, user)
			}

			// Replaced wholesale: the old user snapshot must not survive.
			if err := store.Set(ctx, Credential{Token: "T2"}); err != nil {
				t.Fatal(err)
			}
			got, err = store.Get(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if got.Token != "T2" || len(got.User) != 0 {
				t.Errorf("after replace got %+v, want token T2 and no user", got)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if _, err := store.Get(ctx); !errors.Is(err, ErrNoCredential) {
				t.Errorf("Get() after Clear error = %v, want ErrNoCredential", err)
			}

			if err := store.Clear(ctx); err != nil {
				t.Errorf("second Clear() error = %v", err)
			}
		})
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(context.Background(), Credential{}); err == nil {
				t.Error("Set() with empty token should fail")
			}
		})
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()

	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					switch i % 3 {
					case 0:
						store.Set(ctx, Credential{Token: "T"})
					case 1:
						store.Get(ctx)
					default:
						store.Clear(ctx)
					}
				}(i)
			}
			wg.Wait()
		})
	}
}

func TestKVStore_SealsAtRest(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s, _ := sealer.New(testMasterKey, "medpanel/session")

	store := NewKVStore(kv, WithSealer(s))
	if err := store.Set(ctx, Credential{Token: "secret-token", User: json.RawMessage(`{"name":"dr"}`)}); err != nil {
		t.Fatal(err)
	}

	raw, err := kv.Get(ctx, []byte(KeyToken))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("secret-token")) {
		t.Error("token stored in plaintext")
	}

	other, _ := sealer.New([]byte("ffffffffffffffffffffffffffffffff"), "medpanel/session")
	if _, err := NewKVStore(kv, WithSealer(other)).Get(ctx); !errors.Is(err, sealer.ErrOpenFailed) {
		t.Errorf("Get() with wrong key error = %v, want ErrOpenFailed", err)
	}
}

func TestKVStore_PlainKeys(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := NewKVStore(kv)

	store.Set(ctx, Credential{Token: "T1", User: json.RawMessage(`{}`)})

	for _, key := range []string{KeyToken, KeyUser} {
		if _, err := kv.Get(ctx, []byte(key)); err != nil {
			t.Errorf("key %q not written: %v", key, err)
		}
	}

	store.Clear(ctx)

	for _, key := range []string{KeyToken, KeyUser} {
		if _, err := kv.Get(ctx, []byte(key)); !errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("key %q survived Clear: %v", key, err)
		}
	}
}

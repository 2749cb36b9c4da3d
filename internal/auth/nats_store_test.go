package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlus/xbrlapi/internal/auth"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

var errBucketUnavailable = errors.New("bucket unavailable")

type fakeKV struct {
	mutex   sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.failGet {
		return nil, errBucketUnavailable
	}

	value, ok := f.entries[key]
	if !ok {
		return nil, fmt.Errorf("kv get %s: %w", key, jetstream.ErrKeyNotFound)
	}

	return value, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.entries[key] = value

	return nil
}

func TestNATSTokenStore(t *testing.T) {
	t.Parallel()

	t.Run("missing key yields empty credentials", func(t *testing.T) {
		t.Parallel()

		store := auth.NewNATSTokenStoreFromKV(newFakeKV(), "client-1")

		creds, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, xbrl.Credentials{}, creds)
	})

	t.Run("set then get", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		store := auth.NewNATSTokenStoreFromKV(kv, "client-1")

		err := store.Set(context.Background(), xbrl.Credentials{AccessToken: "a", RefreshToken: "r"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"access_token":"a","refresh_token":"r"}`, string(kv.entries["client-1"]))

		// a second store on the same bucket sees the pair
		other := auth.NewNATSTokenStoreFromKV(kv, "client-1")

		creds, err := other.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", creds.AccessToken)
		assert.Equal(t, "r", creds.RefreshToken)
	})

	t.Run("default key", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		store := auth.NewNATSTokenStoreFromKV(kv, "")

		require.NoError(t, store.Set(context.Background(), xbrl.Credentials{AccessToken: "a"}))
		assert.Contains(t, kv.entries, "default")
	})

	t.Run("bucket errors propagate", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		kv.failGet = true
		store := auth.NewNATSTokenStoreFromKV(kv, "client-1")

		_, err := store.Get(context.Background())
		require.ErrorIs(t, err, errBucketUnavailable)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		kv.entries["client-1"] = []byte("not json")
		store := auth.NewNATSTokenStoreFromKV(kv, "client-1")

		_, err := store.Get(context.Background())
		require.Error(t, err)
	})

	t.Run("connection required", func(t *testing.T) {
		t.Parallel()

		_, err := auth.NewNATSTokenStore(context.Background(), &auth.NATSConfig{Bucket: "tokens"})
		require.ErrorIs(t, err, constants.ErrNATSConnRequired)
	})
}

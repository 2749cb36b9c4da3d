package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// NATSConfig configures a JetStream key/value token store.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string
	// Conn reuses an existing connection.
	Conn *nats.Conn
	// Bucket is the KV bucket name. Defaults to xbrlus_tokens.
	Bucket string
	// Key under which the pair is stored. Defaults to the client id.
	Key string
}

// KeyValue is the subset of a JetStream bucket the store needs.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// NATSTokenStore shares one credential pair between processes through a
// JetStream key/value bucket.
type NATSTokenStore struct {
	kv    KeyValue
	key   string
	owned *nats.Conn
}

// NewNATSTokenStore connects to NATS and opens (or creates) the bucket.
func NewNATSTokenStore(ctx context.Context, config *NATSConfig) (*NATSTokenStore, error) {
	if config == nil || (config.Conn == nil && config.URL == "") {
		return nil, constants.ErrNATSConnRequired
	}

	conn := config.Conn

	var owned *nats.Conn

	if conn == nil {
		var err error

		conn, err = nats.Connect(config.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		owned = conn
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeOwned(owned)

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "XBRL US API credentials",
	})
	if err != nil {
		closeOwned(owned)

		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	store := NewNATSTokenStoreFromKV(&jetstreamKV{kv: kv}, config.Key)
	store.owned = owned

	return store, nil
}

// NewNATSTokenStoreFromKV wraps an already opened bucket.
func NewNATSTokenStoreFromKV(kv KeyValue, key string) *NATSTokenStore {
	if key == "" {
		key = "default"
	}

	return &NATSTokenStore{kv: kv, key: key}
}

// Get reads the credentials. A missing key yields empty credentials.
func (s *NATSTokenStore) Get(ctx context.Context) (xbrl.Credentials, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return xbrl.Credentials{}, nil
		}

		return xbrl.Credentials{}, fmt.Errorf("failed to read tokens from NATS: %w", err)
	}

	var creds xbrl.Credentials

	err = json.Unmarshal(data, &creds)
	if err != nil {
		return xbrl.Credentials{}, fmt.Errorf("failed to decode tokens from NATS: %w", err)
	}

	return creds, nil
}

// Set writes the credentials.
func (s *NATSTokenStore) Set(ctx context.Context, creds xbrl.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	err = s.kv.Put(ctx, s.key, data)
	if err != nil {
		return fmt.Errorf("failed to write tokens to NATS: %w", err)
	}

	return nil
}

// Close releases the connection if the store opened it.
func (s *NATSTokenStore) Close() {
	closeOwned(s.owned)
	s.owned = nil
}

func closeOwned(conn *nats.Conn) {
	if conn != nil {
		conn.Close()
	}
}

type jetstreamKV struct {
	kv jetstream.KeyValue
}

func (j *jetstreamKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}

	return entry.Value(), nil
}

func (j *jetstreamKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := j.kv.Put(ctx, key, value)
	if err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}

	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// StoreType selects a token store backend.
type StoreType string

const (
	// StoreTypeMemory keeps tokens in process memory.
	StoreTypeMemory StoreType = "memory"

	// StoreTypeFile keeps tokens in a YAML file.
	StoreTypeFile StoreType = "file"

	// StoreTypeNATS keeps tokens in a NATS JetStream KV bucket.
	StoreTypeNATS StoreType = "nats"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS token store")
	ErrUnsupportedStoreType = errors.New("unsupported token store type")
)

// StoreConfig configures a token store backend.
type StoreConfig struct {
	Type StoreType

	// FilePath for StoreTypeFile. Defaults to ~/.xbrlus/tokens.yml.
	FilePath string

	// NATS for StoreTypeNATS.
	NATS *NATSConfig
}

// NewStoreFromConfig creates a token store from configuration. A nil config
// yields an empty memory store.
func NewStoreFromConfig(ctx context.Context, config *StoreConfig) (xbrl.TokenStore, error) {
	if config == nil {
		return NewMemoryTokenStore(xbrl.Credentials{}), nil
	}

	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryTokenStore(xbrl.Credentials{}), nil

	case StoreTypeFile:
		path := config.FilePath
		if path == "" {
			var err error

			path, err = DefaultTokenFilePath()
			if err != nil {
				return nil, err
			}
		}

		return NewFileTokenStore(path), nil

	case StoreTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSTokenStore(ctx, config.NATS)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStoreType, config.Type)
	}
}

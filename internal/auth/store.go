package auth

import (
	"context"
	"sync"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// MemoryTokenStore keeps the credential pair in process memory.
type MemoryTokenStore struct {
	mutex sync.RWMutex
	creds xbrl.Credentials
}

// NewMemoryTokenStore creates a store seeded with creds.
func NewMemoryTokenStore(creds xbrl.Credentials) *MemoryTokenStore {
	return &MemoryTokenStore{creds: creds}
}

// Get returns the stored credentials.
func (s *MemoryTokenStore) Get(_ context.Context) (xbrl.Credentials, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.creds, nil
}

// Set replaces the stored credentials.
func (s *MemoryTokenStore) Set(_ context.Context, creds xbrl.Credentials) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.creds = creds

	return nil
}

// Clear empties the store.
func (s *MemoryTokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.creds = xbrl.Credentials{}
}

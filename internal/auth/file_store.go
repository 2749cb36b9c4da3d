package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// FileTokenStore persists the credential pair as a YAML document readable
// only by the owner.
type FileTokenStore struct {
	path  string
	mutex sync.Mutex
}

// NewFileTokenStore creates a store backed by path. The file is created on
// the first Set.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenFilePath returns ~/.xbrlus/tokens.yml.
func DefaultTokenFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, constants.DefaultConfigDirName, constants.DefaultTokenFileName), nil
}

// Path returns the backing file path.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Get reads the credentials. A missing file yields empty credentials.
func (s *FileTokenStore) Get(_ context.Context) (xbrl.Credentials, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return xbrl.Credentials{}, nil
		}

		return xbrl.Credentials{}, fmt.Errorf("failed to read token file: %w", err)
	}

	var creds xbrl.Credentials

	err = yaml.Unmarshal(data, &creds)
	if err != nil {
		return xbrl.Credentials{}, fmt.Errorf("%w: %s: %w", constants.ErrTokenFileInvalid, s.path, err)
	}

	return creds, nil
}

// Set writes the credentials, replacing the file atomically.
func (s *FileTokenStore) Set(_ context.Context, creds xbrl.Credentials) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := os.MkdirAll(filepath.Dir(s.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := yaml.Marshal(&creds)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tmp := s.path + ".tmp"

	err = os.WriteFile(tmp, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	err = os.Rename(tmp, s.path)
	if err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

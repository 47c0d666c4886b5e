package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileStore persists the token slot as a small JSON document so it
// survives restarts, the way browser local storage survives a reload.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is created on the
// first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[tokenstore NewFileStore] path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[FileStore Get] read failed")
	}

	slots := map[string]string{}
	if err := json.Unmarshal(data, &slots); err != nil {
		return "", errors.Wrap(err, "[FileStore Get] corrupt token file")
	}
	return slots[Key], nil
}

func (s *FileStore) Set(token string) error {
	if token == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(map[string]string{Key: token})
	if err != nil {
		return errors.Wrap(err, "[FileStore Set] encode failed")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore Set] mkdir failed")
	}

	// Write then rename so a crash never leaves a half-written token
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore Set] write failed")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[FileStore Set] rename failed")
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore Clear] remove failed")
	}
	return nil
}

package tokenstore

import "sync"

// InMemoryStore keeps the token for the life of the process
type InMemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory token store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *InMemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *InMemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

package session

import "sync"

// persisted entries
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Storage is session-scoped key/value storage: it survives a restart of the client process
// but not of the machine or browser that hosts it.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(keys ...string) error
}

// MemoryStorage keeps entries for the lifetime of the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

package kvdoc

import (
	"sort"
	"sync"
)

// Backing is an associative container with unique keys that MapDocument
// exposes through the cursor protocol.
type Backing interface {
	// Keys returns the current keys in the container's iteration order.
	Keys() ([]string, error)

	// Get retrieves a value by key. found is false if the key is missing.
	Get(key string) (value any, found bool, err error)

	// Set stores a value, replacing any existing one.
	Set(key string, value any) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}

// GoMap is a Backing over a plain Go map. Keys are reported sorted.
type GoMap map[string]any

func (m GoMap) Keys() ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m GoMap) Get(key string) (any, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m GoMap) Set(key string, value any) error {
	m[key] = value
	return nil
}

func (m GoMap) Delete(key string) error {
	delete(m, key)
	return nil
}

// SyncMap is a Backing over a sync.Map, for containers shared between
// goroutines. Only the container is synchronized; cursors over it are still
// single-goroutine. Non-string keys stored by other code are ignored.
type SyncMap struct {
	m *sync.Map
}

// NewSyncMap wraps m, allocating a fresh map if m is nil.
func NewSyncMap(m *sync.Map) SyncMap {
	if m == nil {
		m = new(sync.Map)
	}
	return SyncMap{m}
}

func (s SyncMap) Map() *sync.Map {
	return s.m
}

func (s SyncMap) Keys() ([]string, error) {
	var keys []string
	s.m.Range(func(k, _ any) bool {
		if ks, ok := k.(string); ok {
			keys = append(keys, ks)
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

func (s SyncMap) Get(key string) (any, bool, error) {
	v, ok := s.m.Load(key)
	return v, ok, nil
}

func (s SyncMap) Set(key string, value any) error {
	s.m.Store(key, value)
	return nil
}

func (s SyncMap) Delete(key string) error {
	s.m.Delete(key)
	return nil
}

package storage

import "sync"

// Memory is a map-backed KV for tests and throwaway sessions.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(key string, value []byte) error {
	return m.SetMany(map[string][]byte{key: value})
}

func (m *Memory) SetMany(items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range items {
		stored := make([]byte, len(v))
		copy(stored, v)
		m.items[k] = stored
	}
	return nil
}

func (m *Memory) Close() error { return nil }

package nvs

import (
	"sort"
	"sync"
)

// Memory is an in-process namespace. Setting Unavailable makes every
// operation fail with ErrUnavailable.
type Memory struct {
	mu          sync.Mutex
	data        map[string][]byte
	Unavailable bool
}

// NewMemory returns an empty in-memory namespace.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// GetString implements Namespace.
func (m *Memory) GetString(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return "", false, ErrUnavailable
	}
	v, ok := m.data[key]
	return string(v), ok, nil
}

// GetUint32 implements Namespace.
func (m *Memory) GetUint32(key string) (uint32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return 0, false, ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	n, err := decodeUint32(key, v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Update applies fn to a copy and commits it only if fn succeeds.
func (m *Memory) Update(fn func(w Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrUnavailable
	}

	staged := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		staged[k] = v
	}
	if err := fn(memWriter(staged)); err != nil {
		return err
	}
	m.data = staged
	return nil
}

// Clear removes every key.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrUnavailable
	}
	m.data = make(map[string][]byte)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close does nothing.
func (m *Memory) Close() error { return nil }

type memWriter map[string][]byte

func (w memWriter) PutString(key, value string) error {
	w[key] = []byte(value)
	return nil
}

func (w memWriter) PutUint32(key string, value uint32) error {
	w[key] = encodeUint32(value)
	return nil
}

func (w memWriter) Delete(key string) error {
	delete(w, key)
	return nil
}

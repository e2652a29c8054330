package storage

import (
	"context"
	"strings"
	"sync"
)

// MockStorage implements the Storage interface in memory for testing.
type MockStorage struct {
	Data map[string][]byte

	lock sync.Mutex
}

// NewMockStorage returns an empty in memory store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		Data: make(map[string][]byte),
	}
}

func (m *MockStorage) Write(ctx context.Context, key string, body []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	b := make([]byte, len(body))
	copy(b, body)
	m.Data[key] = b
	return nil
}

func (m *MockStorage) Read(ctx context.Context, key string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	body, exists := m.Data[key]
	if !exists {
		return nil, ErrNotFound
	}

	b := make([]byte, len(body))
	copy(b, body)
	return b, nil
}

func (m *MockStorage) Remove(ctx context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exists := m.Data[key]; !exists {
		return ErrNotFound
	}
	delete(m.Data, key)
	return nil
}

func (m *MockStorage) List(ctx context.Context, path string) ([]string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var keys []string
	for key := range m.Data {
		if strings.HasPrefix(key, path) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

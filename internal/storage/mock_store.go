package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// MockStore is an in-memory ObjectStore for testing.
type MockStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	calls   MockCalls

	// FailPut, when set, makes Put return this error.
	FailPut error
}

// MockCalls tracks method invocations for test verification.
type MockCalls struct {
	Put    int
	Get    int
	Exists int
	Delete int
	List   int
}

// NewMockStore creates a new in-memory object store.
func NewMockStore() *MockStore {
	return &MockStore{
		objects: make(map[string]*Object),
	}
}

// Put stores an object and returns its content hash.
func (m *MockStore) Put(ctx context.Context, obj *Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++

	if m.FailPut != nil {
		return "", m.FailPut
	}

	hash := obj.Hash
	if hash == "" {
		sum := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(sum[:])
	}

	if existing, ok := m.objects[hash]; ok {
		existing.Metadata.LastAccessed = time.Now()
		return hash, nil
	}

	stored := &Object{
		Hash: hash,
		Type: obj.Type,
		Size: int64(len(obj.Data)),
		Data: make([]byte, len(obj.Data)),
		Metadata: Metadata{
			CreatedAt:    time.Now(),
			LastAccessed: time.Now(),
			Custom:       make(map[string]string),
		},
	}
	copy(stored.Data, obj.Data)
	for k, v := range obj.Metadata.Custom {
		stored.Metadata.Custom[k] = v
	}

	m.objects[hash] = stored
	return hash, nil
}

// Get retrieves a copy of the object with the given hash.
func (m *MockStore) Get(ctx context.Context, hash string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.Get++

	obj, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	obj.Metadata.LastAccessed = time.Now()

	result := &Object{
		Hash: obj.Hash,
		Type: obj.Type,
		Size: obj.Size,
		Data: make([]byte, len(obj.Data)),
		Metadata: Metadata{
			CreatedAt:    obj.Metadata.CreatedAt,
			LastAccessed: obj.Metadata.LastAccessed,
			Custom:       make(map[string]string),
		},
	}
	copy(result.Data, obj.Data)
	for k, v := range obj.Metadata.Custom {
		result.Metadata.Custom[k] = v
	}
	return result, nil
}

// Exists reports whether an object exists.
func (m *MockStore) Exists(ctx context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.Exists++

	_, ok := m.objects[hash]
	return ok, nil
}

// Delete removes an object.
func (m *MockStore) Delete(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	if _, ok := m.objects[hash]; !ok {
		return ErrNotFound{Hash: hash}
	}
	delete(m.objects, hash)
	return nil
}

// List returns all object hashes matching the type filter.
func (m *MockStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.List++

	var hashes []string
	for hash, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

// Close releases resources (no-op for mock).
func (m *MockStore) Close() error {
	return nil
}

// GetCalls returns the number of times each method was called.
func (m *MockStore) GetCalls() MockCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Size returns the number of stored objects.
func (m *MockStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

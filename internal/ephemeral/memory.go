package ephemeral

import (
	"context"
	"path"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory with lazy expiration.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return item.value, nil
}

func (m *MemoryStore) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	delete(m.items, key)
	return item.value, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Scan matches with path.Match, which treats '/' as a separator. Keys used by
// this service never contain '/'.
func (m *MemoryStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.items {
		if _, ok := m.live(k); !ok {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if matched {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Health(context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]memoryItem)
	return nil
}

// live returns the item if present and unexpired, evicting it otherwise.
// Caller holds m.mu.
func (m *MemoryStore) live(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return item, true
}

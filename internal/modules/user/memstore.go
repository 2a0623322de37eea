package user

import (
	"context"
	"sync"

	"rideshare/internal/types"
)

// MemoryStore keeps users in process; values are copied in and out so callers
// never share a record.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[types.ID]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[types.ID]*User)}
}

func (m *MemoryStore) Get(ctx context.Context, id types.ID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u.Clone()
	return nil
}

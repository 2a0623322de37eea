package ride

import (
	"context"
	"sort"
	"sync"

	"rideshare/internal/types"
)

// MemoryStore is an in-process Store. The version check in Update runs under
// the write lock, which gives the same single-winner outcome as the SQL
// UPDATE ... WHERE version = $n.
type MemoryStore struct {
	mu     sync.RWMutex
	rides  map[types.ID]*Ride
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[types.ID]*Ride)}
}

func (m *MemoryStore) Create(ctx context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return ErrConflict
	}
	m.rides[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, r *Ride, expectedVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rides[r.ID]
	if !ok {
		return false, ErrNotFound
	}
	if cur.Version != expectedVersion {
		return false, nil
	}
	m.rides[r.ID] = r.Clone()
	return true, nil
}

func (m *MemoryStore) FindByDriver(ctx context.Context, driverID types.ID) ([]*Ride, error) {
	return m.filter(func(r *Ride) bool { return r.IsAssignedDriver(driverID) }), nil
}

func (m *MemoryStore) FindByPassenger(ctx context.Context, passengerID types.ID) ([]*Ride, error) {
	return m.filter(func(r *Ride) bool { return r.IsPassenger(passengerID) }), nil
}

func (m *MemoryStore) FindByStatus(ctx context.Context, status Status) ([]*Ride, error) {
	return m.filter(func(r *Ride) bool { return r.Status == status }), nil
}

func (m *MemoryStore) FindSharedByStatus(ctx context.Context, statuses ...Status) ([]*Ride, error) {
	return m.filter(func(r *Ride) bool {
		if !r.Shared {
			return false
		}
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, *e)
	return nil
}

// Events returns the event log of one ride in append order.
func (m *MemoryStore) Events(rideID types.ID) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.RideID == rideID {
			out = append(out, e)
		}
	}
	return out
}

// filter returns clones newest first, matching the Postgres ordering.
func (m *MemoryStore) filter(keep func(*Ride) bool) []*Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Ride
	for _, r := range m.rides {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

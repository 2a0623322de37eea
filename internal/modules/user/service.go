// README: User service; every read-modify-write of a user runs under that user's lock.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideshare/internal/lock"
	"rideshare/internal/types"
)

type Service struct {
	store  Store
	locker lock.Locker
	now    func() time.Time
}

func NewService(store Store, locker lock.Locker) *Service {
	return &Service{store: store, locker: locker, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.store.Get(ctx, id)
}

// Ensure returns the user, creating a default profile on first sight.
func (s *Service) Ensure(ctx context.Context, id types.ID, role types.Role) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lockKey(id))
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", id, err)
	}
	defer release()

	u, err = s.store.Get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u = New(id, role, s.now())
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update loads the user, applies fn and saves the result while holding the
// user's lock. Nothing is saved when fn fails.
func (s *Service) Update(ctx context.Context, id types.ID, fn func(*User) error) (*User, error) {
	release, err := s.locker.Acquire(ctx, lockKey(id))
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", id, err)
	}
	defer release()

	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now()
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// IncrementRides is the ride-completion hook.
func (s *Service) IncrementRides(ctx context.Context, id types.ID) error {
	_, err := s.Update(ctx, id, func(u *User) error {
		u.TotalRides++
		return nil
	})
	return err
}

func lockKey(id types.ID) string {
	return "user:" + string(id)
}

// README: Rating service applies a rating to a stored user under per-user serialization.
package rating

import (
	"context"
	"log/slog"

	"rideshare/internal/modules/user"
	"rideshare/internal/observability"
	"rideshare/internal/types"
)

// Updater runs fn as an exclusive read-modify-write of one user.
type Updater interface {
	Update(ctx context.Context, id types.ID, fn func(*user.User) error) (*user.User, error)
}

type Service struct {
	users Updater
	log   *slog.Logger
}

func NewService(users Updater, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, log: log}
}

func (s *Service) Apply(ctx context.Context, userID types.ID, value float64) error {
	u, err := s.users.Update(ctx, userID, func(u *user.User) error {
		Apply(u, value)
		return nil
	})
	if err != nil {
		return err
	}
	observability.RatingsApplied.Inc()
	s.log.Debug("rating applied", "user_id", string(userID), "rating", u.Rating, "count", u.RatingCount)
	return nil
}

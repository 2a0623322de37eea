// README: User store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideshare/internal/types"
)

type Store interface {
	Get(ctx context.Context, id types.ID) (*User, error)
	Save(ctx context.Context, u *User) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, role, rating, rating_count, total_rides,
		       COALESCE(payment_customer_id, ''), created_at, updated_at
		FROM users
		WHERE id = $1`, string(id),
	)

	var u User
	var uid, role string
	err := row.Scan(&uid, &role, &u.Rating, &u.RatingCount, &u.TotalRides,
		&u.PaymentCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = types.ID(uid)
	if u.Role, err = types.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) Save(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, role, rating, rating_count, total_rides,
			payment_customer_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			rating = EXCLUDED.rating,
			rating_count = EXCLUDED.rating_count,
			total_rides = EXCLUDED.total_rides,
			payment_customer_id = EXCLUDED.payment_customer_id,
			updated_at = EXCLUDED.updated_at`,
		string(u.ID), u.Role.String(), u.Rating, u.RatingCount, u.TotalRides,
		u.PaymentCustomerID, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

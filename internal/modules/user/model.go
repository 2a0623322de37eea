// README: Reputation-relevant subset of a user profile.
package user

import (
	"errors"
	"time"

	"rideshare/internal/types"
)

const DefaultRating = 5.0

var ErrNotFound = errors.New("user not found")

type User struct {
	ID                types.ID
	Role              types.Role
	Rating            float64
	RatingCount       int
	TotalRides        int
	PaymentCustomerID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func New(id types.ID, role types.Role, now time.Time) *User {
	return &User{
		ID:        id,
		Role:      role,
		Rating:    DefaultRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) Clone() *User {
	c := *u
	return &c
}

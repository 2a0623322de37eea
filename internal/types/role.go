// README: Participant roles and the acting user supplied by the identity layer.
package types

import (
	"errors"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

// Role has exactly two variants; the zero value is not a valid role.
type Role uint8

const (
	RoleDriver Role = iota + 1
	RolePassenger
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "driver":
		return RoleDriver, nil
	case "passenger":
		return RolePassenger, nil
	}
	return 0, ErrUnknownRole
}

func (r Role) String() string {
	switch r {
	case RoleDriver:
		return "driver"
	case RolePassenger:
		return "passenger"
	}
	return "unknown"
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Actor is the already-authenticated user performing an operation.
type Actor struct {
	ID   ID
	Role Role
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

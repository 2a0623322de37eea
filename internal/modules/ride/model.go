// README: Ride aggregate, status definitions and the transition table.
package ride

import (
	"time"

	"rideshare/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusRequested  Status = "requested"
	StatusScheduled  Status = "scheduled"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Ride struct {
	ID                types.ID
	PassengerID       types.ID
	DriverID          *types.ID
	SecondPassengerID *types.ID

	PickupLabel  string
	DropoffLabel string
	Pickup       *types.Point
	Dropoff      *types.Point

	Seats  int
	Price  types.Money
	Shared bool

	RideTime             time.Time
	EstimatedDistanceKm  *float64
	EstimatedDurationMin *int

	Status Status
	// Version increases by one on every committed write; writers compare it to
	// detect concurrent modification.
	Version int

	AcceptedAt   *time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
	CancelledAt  *time.Time
	CancelReason *string
	CancelledBy  *types.ID

	DriverRating    *float64
	DriverReview    string
	PassengerRating *float64
	PassengerReview string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Driver reports the assigned driver, if any.
func (r *Ride) Driver() (types.ID, bool) {
	if r.DriverID == nil {
		return "", false
	}
	return *r.DriverID, true
}

func (r *Ride) SecondPassenger() (types.ID, bool) {
	if r.SecondPassengerID == nil {
		return "", false
	}
	return *r.SecondPassengerID, true
}

func (r *Ride) IsAssignedDriver(id types.ID) bool {
	d, ok := r.Driver()
	return ok && d == id
}

func (r *Ride) IsPassenger(id types.ID) bool {
	if r.PassengerID == id {
		return true
	}
	sp, ok := r.SecondPassenger()
	return ok && sp == id
}

// Participants lists passenger, second passenger and driver, in that order, skipping absent ones.
func (r *Ride) Participants() []types.ID {
	out := []types.ID{r.PassengerID}
	if sp, ok := r.SecondPassenger(); ok {
		out = append(out, sp)
	}
	if d, ok := r.Driver(); ok {
		out = append(out, d)
	}
	return out
}

// Clone returns a deep copy; the service mutates clones so a failed write leaves
// the loaded ride untouched.
func (r *Ride) Clone() *Ride {
	c := *r
	c.DriverID = clonePtr(r.DriverID)
	c.SecondPassengerID = clonePtr(r.SecondPassengerID)
	c.Pickup = clonePtr(r.Pickup)
	c.Dropoff = clonePtr(r.Dropoff)
	c.EstimatedDistanceKm = clonePtr(r.EstimatedDistanceKm)
	c.EstimatedDurationMin = clonePtr(r.EstimatedDurationMin)
	c.AcceptedAt = clonePtr(r.AcceptedAt)
	c.StartedAt = clonePtr(r.StartedAt)
	c.EndedAt = clonePtr(r.EndedAt)
	c.CancelledAt = clonePtr(r.CancelledAt)
	c.CancelReason = clonePtr(r.CancelReason)
	c.CancelledBy = clonePtr(r.CancelledBy)
	c.DriverRating = clonePtr(r.DriverRating)
	c.PassengerRating = clonePtr(r.PassengerRating)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the ride state flow as code. Terminal states
// have no entry.
var AllowedTransitions = map[Status][]Status{
	StatusNone:       {StatusRequested, StatusScheduled},
	StatusRequested:  {StatusAccepted, StatusCancelled},
	StatusScheduled:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

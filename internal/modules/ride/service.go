// README: Ride service is the only writer of ride state; it runs guards, prices rides and commits transitions.
package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rideshare/internal/events"
	"rideshare/internal/geo"
	"rideshare/internal/modules/user"
	"rideshare/internal/observability"
	"rideshare/internal/types"
)

const (
	MinRequestLead  = 5 * time.Minute
	MinScheduleLead = time.Hour

	// cityKmh converts estimated distance into estimated minutes.
	cityKmh = 40.0

	MinRating = 1.0
	MaxRating = 5.0
)

type Users interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	IncrementRides(ctx context.Context, id types.ID) error
}

type Ratings interface {
	Apply(ctx context.Context, userID types.ID, value float64) error
}

type Pricer interface {
	Price(seats int, pickup, dropoff *types.Point, rideTime time.Time) types.Money
	SharedDiscount(m types.Money) types.Money
}

type Payments interface {
	CreateIntent(ctx context.Context, amount types.Money, customerID string) (string, error)
}

// CancellationFee runs before an in-progress ride is cancelled. A failure
// aborts the cancellation.
type CancellationFee interface {
	ChargeCancellationFee(ctx context.Context, r *Ride) error
}

type Deps struct {
	Store   Store
	Users   Users
	Ratings Ratings
	Pricing Pricer

	// Optional.
	Payments        Payments
	CancellationFee CancellationFee
	Events          events.Publisher
	Log             *slog.Logger
	Now             func() time.Time
}

type Service struct {
	store    Store
	users    Users
	ratings  Ratings
	pricing  Pricer
	payments Payments
	fee      CancellationFee
	events   events.Publisher
	log      *slog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		users:    d.Users,
		ratings:  d.Ratings,
		pricing:  d.Pricing,
		payments: d.Payments,
		fee:      d.CancellationFee,
		events:   d.Events,
		log:      d.Log,
		now:      d.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type RequestCommand struct {
	PassengerID  types.ID
	PickupLabel  string
	DropoffLabel string
	Pickup       *types.Point
	Dropoff      *types.Point
	Seats        int
	RideTime     time.Time
	Shared       bool
}

type AcceptCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type StartCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type CompleteCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type CancelCommand struct {
	RideID types.ID
	Actor  types.Actor
	Reason string
}

type RateCommand struct {
	RideID types.ID
	Actor  types.Actor
	Value  float64
	Review string
}

type JoinCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type PayCommand struct {
	RideID types.ID
	Actor  types.Actor
}

// Request creates an immediate ride in REQUESTED.
func (s *Service) Request(ctx context.Context, cmd RequestCommand) (*Ride, error) {
	return s.create(ctx, cmd, StatusRequested, MinRequestLead)
}

// Schedule creates an advance booking in SCHEDULED.
func (s *Service) Schedule(ctx context.Context, cmd RequestCommand) (*Ride, error) {
	return s.create(ctx, cmd, StatusScheduled, MinScheduleLead)
}

func (s *Service) create(ctx context.Context, cmd RequestCommand, status Status, lead time.Duration) (*Ride, error) {
	if err := validateRequest(cmd); err != nil {
		return nil, err
	}
	now := s.now()
	if cmd.RideTime.Before(now.Add(lead)) {
		return nil, fmt.Errorf("%w: ride time must be at least %s in the future", ErrValidation, lead)
	}

	r := &Ride{
		ID:           types.NewID(),
		PassengerID:  cmd.PassengerID,
		PickupLabel:  strings.TrimSpace(cmd.PickupLabel),
		DropoffLabel: strings.TrimSpace(cmd.DropoffLabel),
		Pickup:       clonePtr(cmd.Pickup),
		Dropoff:      clonePtr(cmd.Dropoff),
		Seats:        cmd.Seats,
		Shared:       cmd.Shared,
		RideTime:     cmd.RideTime,
		Price:        s.pricing.Price(cmd.Seats, cmd.Pickup, cmd.Dropoff, cmd.RideTime),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if r.Pickup != nil && r.Dropoff != nil {
		km := geo.Between(*r.Pickup, *r.Dropoff)
		minutes := int(km * 60 / cityKmh)
		r.EstimatedDistanceKm = &km
		r.EstimatedDurationMin = &minutes
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	observability.RidesCreated.WithLabelValues(string(status)).Inc()
	s.record(ctx, r, StatusNone, types.Actor{ID: cmd.PassengerID, Role: types.RolePassenger})
	s.log.Info("ride created", "ride_id", string(r.ID), "status", string(status), "price", r.Price.String())
	return r, nil
}

func validateRequest(cmd RequestCommand) error {
	switch {
	case cmd.PassengerID == "":
		return fmt.Errorf("%w: passenger is required", ErrValidation)
	case strings.TrimSpace(cmd.PickupLabel) == "":
		return fmt.Errorf("%w: pickup location is required", ErrValidation)
	case strings.TrimSpace(cmd.DropoffLabel) == "":
		return fmt.Errorf("%w: dropoff location is required", ErrValidation)
	case cmd.Seats < 1:
		return fmt.Errorf("%w: at least one seat is required", ErrValidation)
	case cmd.RideTime.IsZero():
		return fmt.Errorf("%w: ride time is required", ErrValidation)
	case cmd.Pickup != nil && !cmd.Pickup.Valid():
		return fmt.Errorf("%w: pickup coordinates out of range", ErrValidation)
	case cmd.Dropoff != nil && !cmd.Dropoff.Valid():
		return fmt.Errorf("%w: dropoff coordinates out of range", ErrValidation)
	}
	return nil
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	// Role is checked before the lookup: non-drivers get ErrForbidden even for unknown ids.
	if cmd.Actor.Role != types.RoleDriver {
		return nil, fmt.Errorf("%w: only drivers can accept rides", ErrForbidden)
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if err := acceptable(r, cmd.Actor.ID); err != nil {
		return nil, err
	}

	next := r.Clone()
	now := s.now()
	next.DriverID = &cmd.Actor.ID
	next.Status = StatusAccepted
	next.AcceptedAt = &now
	if err := s.commit(ctx, "accept", r, next, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, s.diagnose(ctx, r.ID, err, func(cur *Ride) error { return acceptable(cur, cmd.Actor.ID) })
		}
		return nil, err
	}
	s.record(ctx, next, r.Status, cmd.Actor)
	return next, nil
}

func acceptable(r *Ride, driverID types.ID) error {
	if d, ok := r.Driver(); ok && d != driverID {
		return ErrAlreadyAssigned
	}
	if !CanTransition(r.Status, StatusAccepted) {
		return fmt.Errorf("%w: ride is not available for acceptance", ErrInvalidTransition)
	}
	return nil
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Ride, error) {
	return s.driverTransition(ctx, "start", cmd.RideID, cmd.Actor, StatusAccepted, StatusInProgress, func(r *Ride, now time.Time) {
		r.StartedAt = &now
	})
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Ride, error) {
	r, err := s.driverTransition(ctx, "complete", cmd.RideID, cmd.Actor, StatusInProgress, StatusCompleted, func(r *Ride, now time.Time) {
		r.EndedAt = &now
	})
	if err != nil {
		return nil, err
	}
	for _, id := range r.Participants() {
		if err := s.users.IncrementRides(ctx, id); err != nil {
			s.log.Warn("increment total rides", "ride_id", string(r.ID), "user_id", string(id), "err", err)
		}
	}
	return r, nil
}

// driverTransition handles moves that only the assigned driver may make from a
// single source status.
func (s *Service) driverTransition(ctx context.Context, op string, id types.ID, actor types.Actor, from, to Status, apply func(*Ride, time.Time)) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != types.RoleDriver || !r.IsAssignedDriver(actor.ID) {
		return nil, fmt.Errorf("%w: only the assigned driver can %s this ride", ErrForbidden, op)
	}
	if r.Status != from || !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: ride must be %s to %s, got %s", ErrInvalidTransition, from, op, r.Status)
	}

	next := r.Clone()
	now := s.now()
	next.Status = to
	apply(next, now)
	if err := s.commit(ctx, op, r, next, now); err != nil {
		return nil, err
	}
	s.record(ctx, next, r.Status, actor)
	return next, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !r.IsPassenger(cmd.Actor.ID) && !r.IsAssignedDriver(cmd.Actor.ID) {
		return nil, fmt.Errorf("%w: you don't have permission to cancel this ride", ErrForbidden)
	}
	if err := cancellable(r); err != nil {
		return nil, err
	}
	charged := false
	if r.Status == StatusInProgress && s.fee != nil {
		if err := s.fee.ChargeCancellationFee(ctx, r); err != nil {
			return nil, err
		}
		charged = true
	}

	next := r.Clone()
	now := s.now()
	next.Status = StatusCancelled
	next.CancelledAt = &now
	next.CancelledBy = &cmd.Actor.ID
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		next.CancelReason = &reason
	}
	if err := s.commit(ctx, "cancel", r, next, now); err != nil {
		if charged {
			s.log.Warn("cancellation fee charged but ride not cancelled", "ride_id", string(r.ID), "err", err)
		}
		if errors.Is(err, ErrConflict) {
			return nil, s.diagnose(ctx, r.ID, err, cancellable)
		}
		return nil, err
	}
	s.record(ctx, next, r.Status, cmd.Actor)
	return next, nil
}

func cancellable(r *Ride) error {
	if IsTerminal(r.Status) || !CanTransition(r.Status, StatusCancelled) {
		return fmt.Errorf("%w: ride in status %s cannot be cancelled", ErrInvalidTransition, r.Status)
	}
	return nil
}

// RateDriver stores the passenger's rating of the driver and folds it into the
// driver's reputation.
func (s *Service) RateDriver(ctx context.Context, cmd RateCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if r.PassengerID != cmd.Actor.ID {
		return nil, fmt.Errorf("%w: only the passenger can rate the driver", ErrForbidden)
	}
	if err := rateable(r, r.DriverRating, cmd.Value); err != nil {
		return nil, err
	}
	driverID, ok := r.Driver()
	if !ok {
		return nil, fmt.Errorf("%w: ride has no driver", ErrInvalidTransition)
	}

	return s.rate(ctx, "rate_driver", r, cmd, driverID, func(next *Ride, value *float64, review string) {
		next.DriverRating = value
		next.DriverReview = review
	})
}

// RatePassenger stores the driver's rating of the passenger and folds it into
// the passenger's reputation.
func (s *Service) RatePassenger(ctx context.Context, cmd RateCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !r.IsAssignedDriver(cmd.Actor.ID) {
		return nil, fmt.Errorf("%w: only the driver can rate the passenger", ErrForbidden)
	}
	if err := rateable(r, r.PassengerRating, cmd.Value); err != nil {
		return nil, err
	}

	return s.rate(ctx, "rate_passenger", r, cmd, r.PassengerID, func(next *Ride, value *float64, review string) {
		next.PassengerRating = value
		next.PassengerReview = review
	})
}

func rateable(r *Ride, existing *float64, value float64) error {
	if r.Status != StatusCompleted {
		return fmt.Errorf("%w: only completed rides can be rated", ErrInvalidTransition)
	}
	if existing != nil {
		return ErrAlreadyRated
	}
	if value < MinRating || value > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}

// rateSlot writes one side's rating and review; a nil value clears the slot.
type rateSlot func(r *Ride, value *float64, review string)

func (s *Service) rate(ctx context.Context, op string, r *Ride, cmd RateCommand, target types.ID, slot rateSlot) (*Ride, error) {
	if _, err := s.users.Get(ctx, target); err != nil {
		return nil, fmt.Errorf("rated user %s: %w", target, err)
	}

	next := r.Clone()
	now := s.now()
	value := cmd.Value
	slot(next, &value, cmd.Review)
	if err := s.commit(ctx, op, r, next, now); err != nil {
		if errors.Is(err, ErrConflict) {
			// The slot may have been filled by a concurrent rating of the same ride.
			return nil, s.diagnose(ctx, r.ID, err, func(cur *Ride) error {
				if (op == "rate_driver" && cur.DriverRating != nil) || (op == "rate_passenger" && cur.PassengerRating != nil) {
					return ErrAlreadyRated
				}
				return nil
			})
		}
		return nil, err
	}
	if err := s.ratings.Apply(ctx, target, cmd.Value); err != nil {
		if uerr := s.unrate(ctx, op, next, slot); uerr != nil {
			s.log.Error("rating stored but not applied", "ride_id", string(r.ID), "user_id", string(target), "err", uerr)
		}
		return nil, fmt.Errorf("apply rating to %s: %w", target, err)
	}
	s.publish(ctx, next, "ride.rated", cmd.Actor.ID)
	return next, nil
}

// unrateAttempts bounds how often unrate reloads after losing to a concurrent
// write of the other rating slot.
const unrateAttempts = 3

// unrate clears a rating slot written by rate whose reputation update failed,
// so the ride carries no rating the user's mean does not include.
func (s *Service) unrate(ctx context.Context, op string, cur *Ride, slot rateSlot) error {
	for range unrateAttempts {
		undo := cur.Clone()
		slot(undo, nil, "")
		err := s.commit(ctx, op+"_revert", cur, undo, s.now())
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if cur, err = s.store.Get(ctx, cur.ID); err != nil {
			return err
		}
	}
	return ErrConflict
}

// JoinShared puts the actor into the second-passenger slot of a shared ride
// and applies the shared discount to the ride price.
func (s *Service) JoinShared(ctx context.Context, cmd JoinCommand) (*Ride, error) {
	if cmd.Actor.Role != types.RolePassenger {
		return nil, fmt.Errorf("%w: only passengers can join shared rides", ErrForbidden)
	}
	if _, err := s.users.Get(ctx, cmd.Actor.ID); err != nil {
		return nil, fmt.Errorf("passenger %s: %w", cmd.Actor.ID, err)
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if err := joinable(r, cmd.Actor.ID); err != nil {
		return nil, err
	}

	next := r.Clone()
	now := s.now()
	next.SecondPassengerID = &cmd.Actor.ID
	next.Price = s.pricing.SharedDiscount(r.Price)
	if err := s.commit(ctx, "join", r, next, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, s.diagnose(ctx, r.ID, err, func(cur *Ride) error { return joinable(cur, cmd.Actor.ID) })
		}
		return nil, err
	}
	observability.SharedJoins.Inc()
	s.publish(ctx, next, "ride.joined", cmd.Actor.ID)
	return next, nil
}

func joinable(r *Ride, passengerID types.ID) error {
	if !r.Shared {
		return fmt.Errorf("%w: ride is not available for sharing", ErrValidation)
	}
	if r.PassengerID == passengerID {
		return fmt.Errorf("%w: cannot join your own ride", ErrValidation)
	}
	if r.Status != StatusRequested && r.Status != StatusAccepted {
		return fmt.Errorf("%w: shared ride cannot be joined in status %s", ErrInvalidTransition, r.Status)
	}
	if _, ok := r.SecondPassenger(); ok {
		return ErrRideFull
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	return s.store.Get(ctx, id)
}

// ListForUser returns the rides the actor drives or rides in, newest first.
func (s *Service) ListForUser(ctx context.Context, actor types.Actor) ([]*Ride, error) {
	switch actor.Role {
	case types.RoleDriver:
		return s.store.FindByDriver(ctx, actor.ID)
	case types.RolePassenger:
		return s.store.FindByPassenger(ctx, actor.ID)
	}
	return nil, fmt.Errorf("%w: invalid user role", ErrValidation)
}

var (
	driverActive    = []Status{StatusAccepted, StatusInProgress}
	passengerActive = []Status{StatusRequested, StatusScheduled, StatusAccepted, StatusInProgress}
)

// ActiveForUser returns the actor's most recent ride that is still underway.
// ErrNotFound means there is none.
func (s *Service) ActiveForUser(ctx context.Context, actor types.Actor) (*Ride, error) {
	if _, err := s.users.Get(ctx, actor.ID); err != nil {
		return nil, err
	}
	rides, err := s.ListForUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	active := passengerActive
	if actor.Role == types.RoleDriver {
		active = driverActive
	}
	for _, r := range rides {
		for _, st := range active {
			if r.Status == st {
				return r, nil
			}
		}
	}
	return nil, ErrNotFound
}

// Pay returns a payment intent reference for the ride price, charged to the
// acting passenger. The ride itself is not modified.
func (s *Service) Pay(ctx context.Context, cmd PayCommand) (string, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return "", err
	}
	if !r.IsPassenger(cmd.Actor.ID) {
		return "", fmt.Errorf("%w: only passengers of this ride can pay for it", ErrForbidden)
	}
	switch r.Status {
	case StatusAccepted, StatusInProgress, StatusCompleted:
	default:
		return "", fmt.Errorf("%w: ride in status %s cannot be paid", ErrInvalidTransition, r.Status)
	}
	if s.payments == nil {
		return "", ErrPaymentDisabled
	}
	u, err := s.users.Get(ctx, cmd.Actor.ID)
	if err != nil {
		return "", err
	}
	ref, err := s.payments.CreateIntent(ctx, r.Price, u.PaymentCustomerID)
	if err != nil {
		return "", err
	}
	s.log.Info("payment intent created", "ride_id", string(r.ID), "user_id", string(cmd.Actor.ID), "amount", r.Price.String())
	return ref, nil
}

// commit writes next over prev with the version check. A lost check is
// reported as ErrConflict and nothing is written.
func (s *Service) commit(ctx context.Context, op string, prev, next *Ride, now time.Time) error {
	next.Version = prev.Version + 1
	next.UpdatedAt = now
	ok, err := s.store.Update(ctx, next, prev.Version)
	if err != nil {
		return err
	}
	if !ok {
		observability.RideConflicts.WithLabelValues(op).Inc()
		return ErrConflict
	}
	return nil
}

// diagnose reloads a ride after a lost version check so the caller gets the
// guard error the winning write caused, falling back to conflict.
func (s *Service) diagnose(ctx context.Context, id types.ID, conflict error, guard func(*Ride) error) error {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return conflict
	}
	if err := guard(cur); err != nil {
		return err
	}
	return conflict
}

// record appends the transition event and publishes it. The ride is already
// committed, so failures here are logged only.
func (s *Service) record(ctx context.Context, r *Ride, from Status, actor types.Actor) {
	actorID := actor.ID
	if err := s.store.AppendEvent(ctx, &Event{
		RideID:     r.ID,
		FromStatus: from,
		ToStatus:   r.Status,
		ActorRole:  actor.Role.String(),
		ActorID:    &actorID,
		CreatedAt:  r.UpdatedAt,
	}); err != nil {
		s.log.Warn("append ride event", "ride_id", string(r.ID), "err", err)
	}
	observability.RideTransitions.WithLabelValues(string(from), string(r.Status)).Inc()
	s.publishTransition(ctx, r, from, actor.ID)
}

func (s *Service) publish(ctx context.Context, r *Ride, typ string, actorID types.ID) {
	s.send(ctx, events.Message{
		Type:         typ,
		RideID:       r.ID,
		From:         string(r.Status),
		To:           string(r.Status),
		ActorID:      actorID,
		Participants: r.Participants(),
		OccurredAt:   r.UpdatedAt,
	})
}

func (s *Service) publishTransition(ctx context.Context, r *Ride, from Status, actorID types.ID) {
	s.send(ctx, events.Message{
		Type:         "ride." + string(r.Status),
		RideID:       r.ID,
		From:         string(from),
		To:           string(r.Status),
		ActorID:      actorID,
		Participants: r.Participants(),
		OccurredAt:   r.UpdatedAt,
	})
}

func (s *Service) send(ctx context.Context, m events.Message) {
	if err := s.events.Publish(ctx, m); err != nil {
		s.log.Warn("publish ride event", "ride_id", string(m.RideID), "type", m.Type, "err", err)
	}
}

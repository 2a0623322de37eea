// README: Ride store contract and its PostgreSQL implementation.
package ride

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideshare/internal/types"
)

// Store persists rides. Update is a compare-and-set: it writes r only while the
// stored version still equals expectedVersion and reports whether it did. That
// check is what makes concurrent accepts and joins resolve to a single winner.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	Update(ctx context.Context, r *Ride, expectedVersion int) (bool, error)
	FindByDriver(ctx context.Context, driverID types.ID) ([]*Ride, error)
	FindByPassenger(ctx context.Context, passengerID types.ID) ([]*Ride, error)
	FindByStatus(ctx context.Context, status Status) ([]*Ride, error)
	FindSharedByStatus(ctx context.Context, statuses ...Status) ([]*Ride, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const rideColumns = `
	id, passenger_id, driver_id, second_passenger_id,
	pickup_label, dropoff_label, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	seats, price_cents, currency, is_shared,
	ride_time, estimated_distance_km, estimated_duration_min,
	status, version,
	accepted_at, started_at, ended_at, cancelled_at, cancel_reason, cancelled_by,
	driver_rating, driver_review, passenger_rating, passenger_review,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (`+rideColumns+`
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19,
			$20, $21, $22, $23, $24, $25,
			$26, $27, $28, $29,
			$30, $31
		)`, rowArgs(r)...,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, string(id))
	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) Update(ctx context.Context, r *Ride, expectedVersion int) (bool, error) {
	args := rowArgs(r)
	args = append(args, expectedVersion)
	tag, err := s.db.Exec(ctx, `
		UPDATE rides SET
			passenger_id = $2, driver_id = $3, second_passenger_id = $4,
			pickup_label = $5, dropoff_label = $6,
			pickup_lat = $7, pickup_lng = $8, dropoff_lat = $9, dropoff_lng = $10,
			seats = $11, price_cents = $12, currency = $13, is_shared = $14,
			ride_time = $15, estimated_distance_km = $16, estimated_duration_min = $17,
			status = $18, version = $19,
			accepted_at = $20, started_at = $21, ended_at = $22, cancelled_at = $23,
			cancel_reason = $24, cancelled_by = $25,
			driver_rating = $26, driver_review = $27,
			passenger_rating = $28, passenger_review = $29,
			created_at = $30, updated_at = $31
		WHERE id = $1 AND version = $32`, args...,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) FindByDriver(ctx context.Context, driverID types.ID) ([]*Ride, error) {
	return s.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC`, string(driverID))
}

func (s *PostgresStore) FindByPassenger(ctx context.Context, passengerID types.ID) ([]*Ride, error) {
	return s.query(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE passenger_id = $1 OR second_passenger_id = $1
		ORDER BY created_at DESC`, string(passengerID))
}

func (s *PostgresStore) FindByStatus(ctx context.Context, status Status) ([]*Ride, error) {
	return s.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE status = $1 ORDER BY created_at DESC`, string(status))
}

func (s *PostgresStore) FindSharedByStatus(ctx context.Context, statuses ...Status) ([]*Ride, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE is_shared AND status = ANY($1) ORDER BY created_at DESC`, names)
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_events (
			ride_id, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorRole,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*Ride, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func rowArgs(r *Ride) []any {
	var pLat, pLng, dLat, dLng *float64
	if r.Pickup != nil {
		pLat, pLng = &r.Pickup.Lat, &r.Pickup.Lng
	}
	if r.Dropoff != nil {
		dLat, dLng = &r.Dropoff.Lat, &r.Dropoff.Lng
	}
	return []any{
		string(r.ID), string(r.PassengerID), toStringPtr(r.DriverID), toStringPtr(r.SecondPassengerID),
		r.PickupLabel, r.DropoffLabel, pLat, pLng, dLat, dLng,
		r.Seats, r.Price.Amount, r.Price.Currency, r.Shared,
		r.RideTime, r.EstimatedDistanceKm, r.EstimatedDurationMin,
		string(r.Status), r.Version,
		r.AcceptedAt, r.StartedAt, r.EndedAt, r.CancelledAt, r.CancelReason, toStringPtr(r.CancelledBy),
		r.DriverRating, r.DriverReview, r.PassengerRating, r.PassengerReview,
		r.CreatedAt, r.UpdatedAt,
	}
}

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	var id, passengerID, status string
	var driverID, secondID, cancelledBy *string
	var pLat, pLng, dLat, dLng *float64
	var acceptedAt, startedAt, endedAt, cancelledAt *time.Time

	err := row.Scan(
		&id, &passengerID, &driverID, &secondID,
		&r.PickupLabel, &r.DropoffLabel, &pLat, &pLng, &dLat, &dLng,
		&r.Seats, &r.Price.Amount, &r.Price.Currency, &r.Shared,
		&r.RideTime, &r.EstimatedDistanceKm, &r.EstimatedDurationMin,
		&status, &r.Version,
		&acceptedAt, &startedAt, &endedAt, &cancelledAt, &r.CancelReason, &cancelledBy,
		&r.DriverRating, &r.DriverReview, &r.PassengerRating, &r.PassengerReview,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ID = types.ID(id)
	r.PassengerID = types.ID(passengerID)
	r.Status = Status(status)
	r.DriverID = toIDPtr(driverID)
	r.SecondPassengerID = toIDPtr(secondID)
	r.CancelledBy = toIDPtr(cancelledBy)
	if pLat != nil && pLng != nil {
		r.Pickup = &types.Point{Lat: *pLat, Lng: *pLng}
	}
	if dLat != nil && dLng != nil {
		r.Dropoff = &types.Point{Lat: *dLat, Lng: *dLng}
	}
	r.AcceptedAt = acceptedAt
	r.StartedAt = startedAt
	r.EndedAt = endedAt
	r.CancelledAt = cancelledAt
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}

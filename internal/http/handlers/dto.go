// README: Wire representations of rides and money.
package handlers

import (
	"time"

	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

type moneyResp struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

func toMoneyResp(m types.Money) moneyResp {
	return moneyResp{Amount: m.Amount, Currency: m.Currency, Display: m.String()}
}

type rideResp struct {
	ID                types.ID  `json:"id"`
	PassengerID       types.ID  `json:"passenger_id"`
	DriverID          *types.ID `json:"driver_id,omitempty"`
	SecondPassengerID *types.ID `json:"second_passenger_id,omitempty"`

	PickupLabel  string       `json:"pickup_location"`
	DropoffLabel string       `json:"dropoff_location"`
	Pickup       *types.Point `json:"pickup,omitempty"`
	Dropoff      *types.Point `json:"dropoff,omitempty"`

	Seats  int       `json:"seats"`
	Price  moneyResp `json:"price"`
	Shared bool      `json:"shared"`

	RideTime             time.Time `json:"ride_time"`
	EstimatedDistanceKm  *float64  `json:"estimated_distance_km,omitempty"`
	EstimatedDurationMin *int      `json:"estimated_duration_min,omitempty"`

	Status  ride.Status `json:"status"`
	Version int         `json:"version"`

	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CancelledBy  *types.ID  `json:"cancelled_by,omitempty"`

	DriverRating    *float64 `json:"driver_rating,omitempty"`
	DriverReview    string   `json:"driver_review,omitempty"`
	PassengerRating *float64 `json:"passenger_rating,omitempty"`
	PassengerReview string   `json:"passenger_review,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRideResp(r *ride.Ride) rideResp {
	return rideResp{
		ID:                   r.ID,
		PassengerID:          r.PassengerID,
		DriverID:             r.DriverID,
		SecondPassengerID:    r.SecondPassengerID,
		PickupLabel:          r.PickupLabel,
		DropoffLabel:         r.DropoffLabel,
		Pickup:               r.Pickup,
		Dropoff:              r.Dropoff,
		Seats:                r.Seats,
		Price:                toMoneyResp(r.Price),
		Shared:               r.Shared,
		RideTime:             r.RideTime,
		EstimatedDistanceKm:  r.EstimatedDistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		Status:               r.Status,
		Version:              r.Version,
		AcceptedAt:           r.AcceptedAt,
		StartedAt:            r.StartedAt,
		EndedAt:              r.EndedAt,
		CancelledAt:          r.CancelledAt,
		CancelReason:         r.CancelReason,
		CancelledBy:          r.CancelledBy,
		DriverRating:         r.DriverRating,
		DriverReview:         r.DriverReview,
		PassengerRating:      r.PassengerRating,
		PassengerReview:      r.PassengerReview,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func toRideList(rides []*ride.Ride) []rideResp {
	out := make([]rideResp, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResp(r))
	}
	return out
}

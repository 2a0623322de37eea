// README: Pricing service computes ride fares from seats, distance and time of day.
package pricing

import (
	"math"
	"time"

	"rideshare/internal/geo"
	"rideshare/internal/types"
)

type Service struct {
	rates Rates
	loc   *time.Location
}

// NewService builds a pricing service. loc is the zone whose wall clock decides
// peak and night hours; nil uses the ride time's own location.
func NewService(rates Rates, loc *time.Location) *Service {
	return &Service{rates: rates, loc: loc}
}

// Price is deterministic for identical inputs.
func (s *Service) Price(seats int, pickup, dropoff *types.Point, rideTime time.Time) types.Money {
	var dist *float64
	if pickup != nil && dropoff != nil {
		d := geo.Between(*pickup, *dropoff)
		dist = &d
	}
	return s.Quote(seats, dist, rideTime).Total
}

func (s *Service) Quote(seats int, distanceKm *float64, rideTime time.Time) Quote {
	seatCost := s.rates.PerSeat * float64(seats)
	distanceCost := s.rates.DefaultDistanceFare
	if distanceKm != nil {
		distanceCost = *distanceKm * s.rates.PerKm
	}
	mult := s.TimeMultiplier(rideTime)
	total := (s.rates.BaseFare + seatCost + distanceCost) * mult

	return Quote{
		Seats:      seats,
		DistanceKm: distanceKm,
		Multiplier: mult,
		Breakdown: map[string]int64{
			"base":     RoundCents(s.rates.BaseFare),
			"seats":    RoundCents(seatCost),
			"distance": RoundCents(distanceCost),
		},
		Total: types.Money{Amount: RoundCents(total), Currency: s.rates.Currency},
	}
}

// TimeMultiplier is 1.5 for 07-09h and 17-19h, 1.25 for 22-05h, otherwise 1.
func (s *Service) TimeMultiplier(rideTime time.Time) float64 {
	if s.loc != nil {
		rideTime = rideTime.In(s.loc)
	}
	h := rideTime.Hour()
	switch {
	case (h >= 7 && h <= 9) || (h >= 17 && h <= 19):
		return s.rates.PeakMultiplier
	case h >= 22 || h <= 5:
		return s.rates.NightMultiplier
	}
	return 1.0
}

// SharedDiscount returns the price a shared ride carries once its second passenger joins.
func (s *Service) SharedDiscount(m types.Money) types.Money {
	return types.Money{
		Amount:   roundHalfUp(float64(m.Amount) * s.rates.SharedDiscount),
		Currency: m.Currency,
	}
}

// RoundCents converts a major-unit amount to minor units, rounding half up.
func RoundCents(major float64) int64 {
	return roundHalfUp(major * 100)
}

func roundHalfUp(v float64) int64 {
	// the epsilon absorbs binary noise such as 12.345*100 = 1234.4999999
	if v >= 0 {
		return int64(math.Floor(v + 0.5 + 1e-9))
	}
	return -int64(math.Floor(-v + 0.5 + 1e-9))
}

// README: Fare rate card and quote breakdown.
package pricing

import "rideshare/internal/types"

// Rates holds the fare constants in major currency units.
type Rates struct {
	Currency string
	BaseFare float64
	PerSeat  float64
	PerKm    float64
	// DefaultDistanceFare replaces the distance charge when either end has no coordinates.
	DefaultDistanceFare float64
	PeakMultiplier      float64
	NightMultiplier     float64
	// SharedDiscount is the factor applied to a ride's price when a second passenger joins.
	SharedDiscount float64
}

func DefaultRates() Rates {
	return Rates{
		Currency:            "USD",
		BaseFare:            5.00,
		PerSeat:             2.00,
		PerKm:               1.5,
		DefaultDistanceFare: 10.00,
		PeakMultiplier:      1.5,
		NightMultiplier:     1.25,
		SharedDiscount:      0.75,
	}
}

type Quote struct {
	Seats      int
	DistanceKm *float64
	Multiplier float64
	// Breakdown is informational, in minor units, before the multiplier.
	Breakdown map[string]int64
	Total     types.Money
}

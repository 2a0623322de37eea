// README: Matching service answers the two read-only queries: nearby open rides for drivers and shared candidates for passengers.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rideshare/internal/geo"
	"rideshare/internal/modules/ride"
	"rideshare/internal/observability"
	"rideshare/internal/types"
)

// RideSource is the read side of the ride store.
type RideSource interface {
	FindByStatus(ctx context.Context, status ride.Status) ([]*ride.Ride, error)
	FindSharedByStatus(ctx context.Context, statuses ...ride.Status) ([]*ride.Ride, error)
}

type Service struct {
	rides RideSource
	log   *slog.Logger
}

func NewService(rides RideSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{rides: rides, log: log}
}

// NearbyAvailable returns REQUESTED rides whose pickup lies within radiusKm of
// the driver. Rides without pickup coordinates are skipped. Order is not
// specified.
func (s *Service) NearbyAvailable(ctx context.Context, driver types.Point, radiusKm float64) ([]*ride.Ride, error) {
	if !driver.Valid() {
		return nil, fmt.Errorf("%w: driver coordinates out of range", ErrInvalidQuery)
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}
	defer observeLatency("nearby", time.Now())

	requested, err := s.rides.FindByStatus(ctx, ride.StatusRequested)
	if err != nil {
		return nil, err
	}
	out := make([]*ride.Ride, 0, len(requested))
	for _, r := range requested {
		if r.Pickup == nil {
			continue
		}
		if geo.Between(driver, *r.Pickup) <= radiusKm {
			out = append(out, r)
		}
	}
	observability.MatchResults.WithLabelValues("nearby").Observe(float64(len(out)))
	s.log.Debug("nearby rides", "lat", driver.Lat, "lng", driver.Lng, "radius_km", radiusKm, "scanned", len(requested), "matched", len(out))
	return out, nil
}

// SharedCandidates returns shared rides, REQUESTED or ACCEPTED, whose pickup
// and dropoff are both within SharedRadiusKm of the request's. Without both
// request coordinates the result is empty.
func (s *Service) SharedCandidates(ctx context.Context, pickup, dropoff *types.Point) ([]*ride.Ride, error) {
	if pickup == nil || dropoff == nil {
		return []*ride.Ride{}, nil
	}
	defer observeLatency("shared", time.Now())

	shared, err := s.rides.FindSharedByStatus(ctx, ride.StatusRequested, ride.StatusAccepted)
	if err != nil {
		return nil, err
	}
	out := make([]*ride.Ride, 0, len(shared))
	for _, r := range shared {
		if r.Pickup == nil || r.Dropoff == nil {
			continue
		}
		if geo.Between(*pickup, *r.Pickup) <= SharedRadiusKm && geo.Between(*dropoff, *r.Dropoff) <= SharedRadiusKm {
			out = append(out, r)
		}
	}
	observability.MatchResults.WithLabelValues("shared").Observe(float64(len(out)))
	return out, nil
}

func observeLatency(query string, start time.Time) {
	observability.MatchLatency.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// README: Location service turns free text into coordinates and estimates driving routes.
package location

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"rideshare/internal/geo"
	"rideshare/internal/maps"
	"rideshare/internal/types"
)

// cityKmh is the average speed assumed when no routing backend is available.
const cityKmh = 40.0

type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]maps.Place, error)
}

type Router interface {
	Directions(ctx context.Context, origin, destination types.Point) (maps.Route, error)
}

type Service struct {
	known    *gazetteer
	geocoder Geocoder
	router   Router
	log      *slog.Logger
}

// NewService builds the service. geocoder and router are optional; without
// them suggestions come from places only and routes are straight-line
// estimates.
func NewService(places []KnownPlace, geocoder Geocoder, router Router, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{known: newGazetteer(places), geocoder: geocoder, router: router, log: log}
}

// Suggest returns at most MaxSuggestions places for query, local matches
// first. A blank query yields an empty list. Geocoding failures are logged and
// the local matches returned.
func (s *Service) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	out := []Suggestion{}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}

	seen := make(map[string]bool)
	for _, p := range s.known.lookup(query, MaxSuggestions) {
		out = append(out, Suggestion{Address: p.Address, Point: p.Point, Source: SourceKnown})
		seen[strings.ToLower(p.Address)] = true
	}
	if len(out) >= MaxSuggestions || s.geocoder == nil {
		return out, nil
	}

	places, err := s.geocoder.Geocode(ctx, query, MaxSuggestions)
	if err != nil {
		s.log.Warn("geocode suggestions", "query", query, "err", err)
		return out, nil
	}
	for _, p := range places {
		if len(out) >= MaxSuggestions {
			break
		}
		if seen[strings.ToLower(p.Address)] {
			continue
		}
		seen[strings.ToLower(p.Address)] = true
		out = append(out, Suggestion{Address: p.Address, Point: p.Point, Source: SourceGeocode})
	}
	return out, nil
}

// Route estimates the driving route between two points, falling back to the
// great-circle distance at city speed when the router is absent or fails.
func (s *Service) Route(ctx context.Context, origin, destination types.Point) Route {
	if s.router != nil {
		r, err := s.router.Directions(ctx, origin, destination)
		if err == nil {
			return Route{
				DistanceKm:  r.DistanceKm,
				DurationMin: int(math.Round(r.Duration.Minutes())),
				Source:      SourceMaps,
			}
		}
		s.log.Warn("directions", "err", err)
	}
	km := geo.Between(origin, destination)
	return Route{
		DistanceKm:  km,
		DurationMin: int(km * 60 / cityKmh),
		Source:      SourceLinear,
	}
}

// README: Google Maps client used by the location module for geocoding and driving routes.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	gmaps "googlemaps.github.io/maps"

	"rideshare/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// Place is a simplified geocoding result.
type Place struct {
	Address string
	PlaceID string
	Point   types.Point
}

type Route struct {
	DistanceKm float64
	Duration   time.Duration
}

// Client handles interactions with the Google Maps APIs.
type Client struct {
	client   *gmaps.Client
	language string
	region   string
}

// NewClient creates a Client with the given API key. language and region bias
// results and may be empty.
func NewClient(apiKey, language, region string) (*Client, error) {
	c, err := gmaps.NewClient(gmaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{client: c, language: language, region: region}, nil
}

// Geocode resolves free text to at most limit places.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]Place, error) {
	results, err := c.client.Geocode(ctx, &gmaps.GeocodingRequest{
		Address:  query,
		Language: c.language,
		Region:   c.region,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoding api error: %w", err)
	}

	out := make([]Place, 0, min(limit, len(results)))
	for _, r := range results {
		if len(out) >= limit {
			break
		}
		out = append(out, Place{
			Address: r.FormattedAddress,
			PlaceID: r.PlaceID,
			Point:   types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		})
	}
	return out, nil
}

// Directions returns the first driving route between two coordinates.
func (c *Client) Directions(ctx context.Context, origin, destination types.Point) (Route, error) {
	routes, _, err := c.client.Directions(ctx, &gmaps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        gmaps.TravelModeDriving,
		Language:    c.language,
		Region:      c.region,
	})
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return Route{DistanceKm: float64(leg.Distance.Meters) / 1000, Duration: leg.Duration}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// README: Location suggestions and route estimates returned to clients.
package location

import "rideshare/internal/types"

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 5

type Suggestion struct {
	Address string      `json:"address"`
	Point   types.Point `json:"point"`
	Source  string      `json:"source"`
}

const (
	SourceKnown   = "known"
	SourceGeocode = "geocode"
	SourceMaps    = "maps"
	SourceLinear  = "straight_line"
)

type Route struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Source      string  `json:"source"`
}

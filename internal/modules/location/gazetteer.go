package location

import (
	"sort"
	"strings"

	"rideshare/internal/types"
)

// KnownPlace is a locally resolvable place name.
type KnownPlace struct {
	Key     string
	Address string
	Point   types.Point
}

// DefaultPlaces seeds the local lookup used before any geocoding call.
var DefaultPlaces = []KnownPlace{
	{"abu dhabi", "Abu Dhabi, UAE", types.Point{Lat: 24.4539, Lng: 54.3773}},
	{"abu dhabi corniche", "Abu Dhabi Corniche, UAE", types.Point{Lat: 24.4672, Lng: 54.3567}},
	{"abu dhabi mall", "Abu Dhabi Mall, UAE", types.Point{Lat: 24.4979, Lng: 54.3809}},
	{"sheikh zayed grand mosque", "Sheikh Zayed Grand Mosque, Abu Dhabi, UAE", types.Point{Lat: 24.4128, Lng: 54.4750}},
	{"reem island", "Reem Island, Abu Dhabi, UAE", types.Point{Lat: 24.4991, Lng: 54.4017}},
	{"reem mall", "Reem Mall, Reem Island, Abu Dhabi, UAE", types.Point{Lat: 24.5038, Lng: 54.4066}},
	{"reem village", "Reem Village, Reem Island, Abu Dhabi, UAE", types.Point{Lat: 24.4924, Lng: 54.3972}},
	{"yas island", "Yas Island, Abu Dhabi, UAE", types.Point{Lat: 24.4959, Lng: 54.6056}},
	{"yas mall", "Yas Mall, Abu Dhabi, UAE", types.Point{Lat: 24.4913, Lng: 54.6068}},
	{"ferrari world", "Ferrari World, Yas Island, Abu Dhabi, UAE", types.Point{Lat: 24.4831, Lng: 54.6036}},
	{"dubai", "Dubai, UAE", types.Point{Lat: 25.2048, Lng: 55.2708}},
	{"dubai mall", "Dubai Mall, Dubai, UAE", types.Point{Lat: 25.1972, Lng: 55.2744}},
	{"burj khalifa", "Burj Khalifa, Dubai, UAE", types.Point{Lat: 25.1972, Lng: 55.2740}},
	{"dubai marina", "Dubai Marina, Dubai, UAE", types.Point{Lat: 25.0763, Lng: 55.1304}},
}

// maxTypoDistance is the edit distance still treated as a typo of a key.
const maxTypoDistance = 2

type gazetteer struct {
	places []KnownPlace
}

func newGazetteer(places []KnownPlace) *gazetteer {
	cp := make([]KnownPlace, len(places))
	copy(cp, places)
	// Stable key order keeps suggestion lists deterministic.
	sort.Slice(cp, func(i, j int) bool { return cp[i].Key < cp[j].Key })
	return &gazetteer{places: cp}
}

// lookup returns up to limit places whose key contains the query, shares a
// word prefix with it, or is within maxTypoDistance edits of it.
func (g *gazetteer) lookup(query string, limit int) []KnownPlace {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	var out []KnownPlace
	for _, p := range g.places {
		if matches(p.Key, q) {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func matches(key, q string) bool {
	if strings.Contains(key, q) {
		return true
	}
	for _, w := range strings.Fields(key) {
		if strings.HasPrefix(w, q) || strings.HasPrefix(q, w) {
			return true
		}
	}
	if len(key) > 3 && len(q) > 3 {
		return levenshtein(key, q) <= maxTypoDistance
	}
	return false
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	costs := make([]int, len(rb)+1)
	for j := range costs {
		costs[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		costs[0] = i
		nw := i - 1
		for j := 1; j <= len(rb); j++ {
			sub := nw
			if ra[i-1] != rb[j-1] {
				sub++
			}
			cj := min(costs[j]+1, costs[j-1]+1, sub)
			nw = costs[j]
			costs[j] = cj
		}
	}
	return costs[len(rb)]
}

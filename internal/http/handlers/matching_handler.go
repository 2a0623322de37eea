// README: Matching handlers; nearby open rides for drivers and shared-ride search for passengers.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/matching"
	"rideshare/internal/types"
)

type MatchingHandler struct {
	matching      *matching.Service
	defaultRadius float64
	log           *slog.Logger
}

func NewMatchingHandler(svc *matching.Service, defaultRadiusKm float64, log *slog.Logger) *MatchingHandler {
	return &MatchingHandler{matching: svc, defaultRadius: defaultRadiusKm, log: log}
}

// Nearby lists REQUESTED rides whose pickup is within radius_km of lat,lng.
func (h *MatchingHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := h.defaultRadius
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	rides, err := h.matching.NearbyAvailable(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideList(rides))
}

type sharedSearchReq struct {
	Pickup  *types.Point `json:"pickup"`
	Dropoff *types.Point `json:"dropoff"`
}

// SharedSearch lists open shared rides compatible with the given route.
func (h *MatchingHandler) SharedSearch(c *gin.Context) {
	var req sharedSearchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	rides, err := h.matching.SharedCandidates(c.Request.Context(), req.Pickup, req.Dropoff)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideList(rides))
}

// README: Location handlers (suggestions and route estimates).
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/location"
	"rideshare/internal/types"
)

type LocationHandler struct {
	location *location.Service
	log      *slog.Logger
}

func NewLocationHandler(svc *location.Service, log *slog.Logger) *LocationHandler {
	return &LocationHandler{location: svc, log: log}
}

func (h *LocationHandler) Suggest(c *gin.Context) {
	out, err := h.location.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

// Route estimates distance and duration between two points given as
// from_lat, from_lng, to_lat and to_lng.
func (h *LocationHandler) Route(c *gin.Context) {
	from, ok1 := queryPoint(c, "from")
	to, ok2 := queryPoint(c, "to")
	if !ok1 || !ok2 {
		writeError(c, http.StatusBadRequest, "from and to coordinates are required")
		return
	}
	writeJSON(c, http.StatusOK, h.location.Route(c.Request.Context(), from, to))
}

func queryPoint(c *gin.Context, prefix string) (types.Point, bool) {
	lat, err := strconv.ParseFloat(c.Query(prefix+"_lat"), 64)
	if err != nil {
		return types.Point{}, false
	}
	lng, err := strconv.ParseFloat(c.Query(prefix+"_lng"), 64)
	if err != nil {
		return types.Point{}, false
	}
	p := types.Point{Lat: lat, Lng: lng}
	return p, p.Valid()
}

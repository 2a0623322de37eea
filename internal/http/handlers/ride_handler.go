// README: Ride lifecycle handlers; the acting user always comes from the verified token.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/geo"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

type RideHandler struct {
	rides   *ride.Service
	pricing *pricing.Service
	log     *slog.Logger
	now     func() time.Time
}

func NewRideHandler(rides *ride.Service, pricingSvc *pricing.Service, log *slog.Logger) *RideHandler {
	return &RideHandler{rides: rides, pricing: pricingSvc, log: log, now: time.Now}
}

type createRideReq struct {
	PickupLabel  string       `json:"pickup_location"`
	DropoffLabel string       `json:"dropoff_location"`
	Pickup       *types.Point `json:"pickup"`
	Dropoff      *types.Point `json:"dropoff"`
	Seats        int          `json:"seats"`
	RideTime     time.Time    `json:"ride_time"`
	Shared       bool         `json:"shared"`
}

func (r createRideReq) command(passenger types.ID) ride.RequestCommand {
	return ride.RequestCommand{
		PassengerID:  passenger,
		PickupLabel:  r.PickupLabel,
		DropoffLabel: r.DropoffLabel,
		Pickup:       r.Pickup,
		Dropoff:      r.Dropoff,
		Seats:        r.Seats,
		RideTime:     r.RideTime,
		Shared:       r.Shared,
	}
}

func (h *RideHandler) Request(c *gin.Context) {
	h.create(c, h.rides.Request)
}

func (h *RideHandler) Schedule(c *gin.Context) {
	h.create(c, h.rides.Schedule)
}

func (h *RideHandler) create(c *gin.Context, fn func(ctx context.Context, cmd ride.RequestCommand) (*ride.Ride, error)) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	var req createRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := fn(c.Request.Context(), req.command(actor.ID))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRideResp(r))
}

func (h *RideHandler) List(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	rides, err := h.rides.ListForUser(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideList(rides))
}

func (h *RideHandler) Active(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	r, err := h.rides.ActiveForUser(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResp(r))
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	r, err := h.rides.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResp(r))
}

func (h *RideHandler) Accept(c *gin.Context) {
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return h.rides.Accept(c.Request.Context(), ride.AcceptCommand{RideID: id, Actor: a})
	})
}

func (h *RideHandler) Start(c *gin.Context) {
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return h.rides.Start(c.Request.Context(), ride.StartCommand{RideID: id, Actor: a})
	})
}

func (h *RideHandler) Complete(c *gin.Context) {
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return h.rides.Complete(c.Request.Context(), ride.CompleteCommand{RideID: id, Actor: a})
	})
}

func (h *RideHandler) Join(c *gin.Context) {
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return h.rides.JoinShared(c.Request.Context(), ride.JoinCommand{RideID: id, Actor: a})
	})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *RideHandler) Cancel(c *gin.Context) {
	var req cancelReq
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return h.rides.Cancel(c.Request.Context(), ride.CancelCommand{RideID: id, Actor: a, Reason: req.Reason})
	})
}

type rateReq struct {
	Rating *float64 `json:"rating"`
	Review string   `json:"review"`
}

func (h *RideHandler) RateDriver(c *gin.Context) {
	h.rate(c, h.rides.RateDriver)
}

func (h *RideHandler) RatePassenger(c *gin.Context) {
	h.rate(c, h.rides.RatePassenger)
}

func (h *RideHandler) rate(c *gin.Context, fn func(ctx context.Context, cmd ride.RateCommand) (*ride.Ride, error)) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Rating == nil {
		writeError(c, http.StatusBadRequest, "rating is required")
		return
	}
	h.transition(c, func(id types.ID, a types.Actor) (*ride.Ride, error) {
		return fn(c.Request.Context(), ride.RateCommand{RideID: id, Actor: a, Value: *req.Rating, Review: req.Review})
	})
}

// transition resolves the ride id and caller, then writes the updated ride.
func (h *RideHandler) transition(c *gin.Context, fn func(types.ID, types.Actor) (*ride.Ride, error)) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	actor, ok := caller(c)
	if !ok {
		return
	}
	r, err := fn(id, actor)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResp(r))
}

func (h *RideHandler) Pay(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	actor, ok := caller(c)
	if !ok {
		return
	}
	ref, err := h.rides.Pay(c.Request.Context(), ride.PayCommand{RideID: id, Actor: actor})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ride_id": id, "payment_intent": ref})
}

type quoteReq struct {
	Seats    int          `json:"seats"`
	Pickup   *types.Point `json:"pickup"`
	Dropoff  *types.Point `json:"dropoff"`
	RideTime *time.Time   `json:"ride_time"`
}

type quoteResp struct {
	Seats      int              `json:"seats"`
	DistanceKm *float64         `json:"distance_km,omitempty"`
	Multiplier float64          `json:"multiplier"`
	Breakdown  map[string]int64 `json:"breakdown"`
	Total      moneyResp        `json:"total"`
}

// Quote prices a prospective ride without creating it.
func (h *RideHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Seats < 1 {
		writeError(c, http.StatusBadRequest, "at least one seat is required")
		return
	}
	var dist *float64
	if req.Pickup != nil && req.Dropoff != nil {
		if !req.Pickup.Valid() || !req.Dropoff.Valid() {
			writeError(c, http.StatusBadRequest, "coordinates out of range")
			return
		}
		km := geo.Between(*req.Pickup, *req.Dropoff)
		dist = &km
	}
	at := h.now()
	if req.RideTime != nil {
		at = *req.RideTime
	}
	q := h.pricing.Quote(req.Seats, dist, at)
	writeJSON(c, http.StatusOK, quoteResp{
		Seats:      q.Seats,
		DistanceKm: q.DistanceKm,
		Multiplier: q.Multiplier,
		Breakdown:  q.Breakdown,
		Total:      toMoneyResp(q.Total),
	})
}

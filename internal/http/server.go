// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideshare/internal/http/handlers"
	"rideshare/internal/http/middleware"
	"rideshare/internal/infra"
	"rideshare/internal/modules/location"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/ride"
	"rideshare/internal/modules/user"
	"rideshare/internal/notify"
)

type ServerDeps struct {
	Rides    *ride.Service
	Users    *user.Service
	Matching *matching.Service
	Location *location.Service
	Pricing  *pricing.Service
	Hub      *notify.Hub
	Verifier infra.TokenVerifier
	Log      *slog.Logger

	// NearbyRadiusKm is used when a nearby query gives no radius.
	NearbyRadiusKm float64
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	d := s.deps
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(d.Log), middleware.Metrics(), middleware.Recovery(d.Log))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := []gin.HandlerFunc{middleware.Auth(d.Verifier), middleware.Provision(d.Users)}

	rideHandler := handlers.NewRideHandler(d.Rides, d.Pricing, d.Log)
	matchingHandler := handlers.NewMatchingHandler(d.Matching, d.NearbyRadiusKm, d.Log)
	locationHandler := handlers.NewLocationHandler(d.Location, d.Log)
	wsHandler := handlers.NewWSHandler(d.Hub, d.Log)

	api := r.Group("/api", authed...)
	{
		rides := api.Group("/rides")
		rides.POST("", rideHandler.Request)
		rides.POST("/schedule", rideHandler.Schedule)
		rides.POST("/quote", rideHandler.Quote)
		rides.GET("", rideHandler.List)
		rides.GET("/active", rideHandler.Active)
		rides.GET("/nearby", matchingHandler.Nearby)
		rides.POST("/shared/search", matchingHandler.SharedSearch)
		rides.GET("/:id", rideHandler.Get)
		rides.POST("/:id/accept", rideHandler.Accept)
		rides.POST("/:id/start", rideHandler.Start)
		rides.POST("/:id/complete", rideHandler.Complete)
		rides.POST("/:id/cancel", rideHandler.Cancel)
		rides.POST("/:id/join", rideHandler.Join)
		rides.POST("/:id/rate-driver", rideHandler.RateDriver)
		rides.POST("/:id/rate-passenger", rideHandler.RatePassenger)
		rides.POST("/:id/payment", rideHandler.Pay)

		locations := api.Group("/locations")
		locations.GET("/suggest", locationHandler.Suggest)
		locations.GET("/route", locationHandler.Route)
	}

	r.GET("/ws", append(authed, wsHandler.Serve)...)
	return r
}

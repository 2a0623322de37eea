// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/http/middleware"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/ride"
	"rideshare/internal/modules/user"
	"rideshare/internal/payment"
	"rideshare/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts uuids and the short alphanumeric ids used by tests.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// errorStatus maps service sentinels to HTTP statuses. ok is false for
// unexpected errors whose text must not reach the client.
func errorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, ride.ErrValidation),
		errors.Is(err, ride.ErrRatingOutOfRange),
		errors.Is(err, matching.ErrInvalidQuery):
		return http.StatusBadRequest, true
	case errors.Is(err, ride.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, ride.ErrNotFound), errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, ride.ErrInvalidTransition),
		errors.Is(err, ride.ErrAlreadyAssigned),
		errors.Is(err, ride.ErrAlreadyRated),
		errors.Is(err, ride.ErrRideFull),
		errors.Is(err, ride.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, ride.ErrPaymentDisabled):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, payment.ErrPayment):
		return http.StatusBadGateway, true
	}
	return http.StatusInternalServerError, false
}

func writeServiceError(c *gin.Context, log *slog.Logger, err error) {
	status, known := errorStatus(err)
	if !known {
		log.Error("request failed", "request_id", middleware.RequestIDFrom(c), "path", c.FullPath(), "err", err)
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}

// rideID reads and validates the :id path parameter.
func rideID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return "", false
	}
	return types.ID(id), true
}

// caller returns the provisioned actor or writes 401.
func caller(c *gin.Context) (types.Actor, bool) {
	a, ok := middleware.Caller(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
	}
	return a, ok
}

// README: Websocket endpoint delivering ride events to connected participants.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rideshare/internal/notify"
)

type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(hub *notify.Hub, log *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Callers authenticate by token, so any origin is accepted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve upgrades the connection and blocks until the client goes away.
func (h *WSHandler) Serve(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "user_id", string(actor.ID), "err", err)
		return
	}
	h.hub.Serve(actor.ID, conn)
}

// README: Websocket hub pushing ride lifecycle events to the connected participants of each ride.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rideshare/internal/events"
	"rideshare/internal/types"
)

const writeWait = 5 * time.Second

// session is one websocket connection of a user.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// Hub holds user sessions; a user may be connected from several devices.
type Hub struct {
	mu       sync.RWMutex
	sessions map[types.ID]map[*session]struct{}
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{sessions: make(map[types.ID]map[*session]struct{}), log: log}
}

// Serve registers conn for userID and blocks reading until the client goes
// away, then unregisters and closes it. Incoming frames are discarded.
func (h *Hub) Serve(userID types.ID, conn *websocket.Conn) {
	s := &session{conn: conn}
	h.add(userID, s)
	defer func() {
		h.remove(userID, s)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Connected reports how many sessions userID has open.
func (h *Hub) Connected(userID types.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Publish sends m to every session of every participant. Users without a
// session are skipped; a failed write drops that session.
func (h *Hub) Publish(ctx context.Context, m events.Message) error {
	for _, id := range m.Participants {
		for _, s := range h.snapshot(id) {
			if err := s.send(m); err != nil {
				h.log.Debug("ws send failed; dropping session", "user_id", string(id), "err", err)
				h.remove(id, s)
				_ = s.conn.Close()
			}
		}
	}
	return nil
}

func (h *Hub) snapshot(id types.ID) []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*session, 0, len(h.sessions[id]))
	for s := range h.sessions[id] {
		out = append(out, s)
	}
	return out
}

func (h *Hub) add(id types.ID, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[id] == nil {
		h.sessions[id] = make(map[*session]struct{})
	}
	h.sessions[id][s] = struct{}{}
}

func (h *Hub) remove(id types.ID, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[id], s)
	if len(h.sessions[id]) == 0 {
		delete(h.sessions, id)
	}
}

var _ events.Publisher = (*Hub)(nil)

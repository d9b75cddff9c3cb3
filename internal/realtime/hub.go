// Package realtime implements the push channel the storefront listens
// on: every viewer gets a stable session id at connect time, joins the
// room of the raffle it is looking at, and receives refresh and reset
// signals.  Delivery is best-effort; a viewer that misses a signal
// re-reads the grid on its next fetch.
package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Server -> client events.
const (
	eventSocketID    = "mySocketId"
	eventUpdateRifas = "updateRifas"
	eventReset       = "client:reset"
)

// Client -> server events.
const eventJoinRoom = "room"

// envelope is the wire format in both directions.
type envelope struct {
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// session is one connected viewer.  The send channel is drained by a
// dedicated write pump; when it fills up the connection is considered
// dead and closed.
type session struct {
	id   string
	conn *websocket.Conn
	send chan envelope
	room string
}

// Hub tracks connected sessions and their room membership.  All
// methods are safe for concurrent use and never block on slow peers.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session            // session id -> session
	rooms    map[string]map[string]*session // product slug -> session id -> session
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		rooms:    make(map[string]map[string]*session),
	}
}

// Handle upgrades the request to a WebSocket, assigns the session id
// and serves the connection until the client goes away.  Registered as
// an Echo handler on GET /ws.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// The storefront is served from a different origin.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return nil // Accept already wrote the HTTP error
	}

	s := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan envelope, 16),
	}
	h.register(s)
	defer h.unregister(s)

	ctx := c.Request().Context()
	go s.writePump(ctx)

	// The session id is the reservation owner key; hand it out first.
	s.enqueue(envelope{Event: eventSocketID, Data: s.id})

	for {
		var msg envelope
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return nil
		}
		if msg.Event == eventJoinRoom && msg.Data != "" {
			h.joinRoom(s, msg.Data)
		}
	}
}

// BroadcastTicketsChanged signals every viewer of the product's room
// to re-fetch the grid.  The payload is just the signal: clients
// always re-read current state instead of trusting a delta.
func (h *Hub) BroadcastTicketsChanged(productSlug string) {
	h.mu.RLock()
	members := make([]*session, 0, len(h.rooms[productSlug]))
	for _, s := range h.rooms[productSlug] {
		members = append(members, s)
	}
	h.mu.RUnlock()
	for _, s := range members {
		s.enqueue(envelope{Event: eventUpdateRifas})
	}
}

// NotifySessionReset tells exactly one session to discard its
// in-progress purchase state.  Unknown (already disconnected) sessions
// are ignored.
func (h *Hub) NotifySessionReset(sessionID string) {
	h.mu.RLock()
	s := h.sessions[sessionID]
	h.mu.RUnlock()
	if s != nil {
		s.enqueue(envelope{Event: eventReset})
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	if s.room != "" {
		if members := h.rooms[s.room]; members != nil {
			delete(members, s.id)
			if len(members) == 0 {
				delete(h.rooms, s.room)
			}
		}
	}
	h.mu.Unlock()
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

// joinRoom moves the session into the product's room, leaving any
// previous room first; a viewer watches one raffle at a time.
func (h *Hub) joinRoom(s *session, slug string) {
	h.mu.Lock()
	if s.room != "" && s.room != slug {
		if members := h.rooms[s.room]; members != nil {
			delete(members, s.id)
			if len(members) == 0 {
				delete(h.rooms, s.room)
			}
		}
	}
	s.room = slug
	if h.rooms[slug] == nil {
		h.rooms[slug] = make(map[string]*session)
	}
	h.rooms[slug][s.id] = s
	h.mu.Unlock()
}

// enqueue hands an event to the write pump without blocking.  A full
// queue means the peer stopped reading; drop the event, the connection
// will be reaped by its next failed write or read.
func (s *session) enqueue(ev envelope) {
	select {
	case s.send <- ev:
	default:
		log.Printf("realtime: dropping %s for slow session %s", ev.Event, s.id)
	}
}

func (s *session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, s.conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

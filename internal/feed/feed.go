// Package feed serves timer and activity events to local presentation
// clients over a WebSocket at /events.
package feed

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tiroq/sitstand/internal/diaglog"
	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/statemachine"
)

// Event types
const (
	TypeSnapshot      = "snapshot"
	TypeActivity      = "activity"
	TypeStanding      = "standing"
	TypeTimeRemaining = "time_remaining"
	TypePaused        = "paused"
)

const (
	sendBuffer = 32
	writeWait  = 2 * time.Second
)

// Event is one JSON message on the feed. Exactly one value field is set,
// matching Type.
type Event struct {
	Type          string              `json:"type"`
	Activity      string              `json:"activity,omitempty"`
	Standing      *bool               `json:"standing,omitempty"`
	TimeRemaining *int                `json:"time_remaining,omitempty"`
	Paused        *bool               `json:"paused,omitempty"`
	Snapshot      *ipc.StatusSnapshot `json:"snapshot,omitempty"`
	At            time.Time           `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to connected clients. Observer methods never block:
// a client that falls sendBuffer events behind is dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	snapshot ipc.StatusSnapshot
	upgrader websocket.Upgrader
	errLog   *log.Logger
	logger   *diaglog.Logger
}

var (
	_ statemachine.ActivityObserver = (*Hub)(nil)
	_ statemachine.TimerObserver    = (*Hub)(nil)
)

// NewHub creates an empty hub.
func NewHub(errLog *log.Logger, logger *diaglog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		errLog:  errLog,
		logger:  logger,
	}
}

// UpdateSnapshot stores the snapshot sent to clients when they connect.
func (h *Hub) UpdateSnapshot(s ipc.StatusSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = s
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ActivityChanged implements statemachine.ActivityObserver.
func (h *Hub) ActivityChanged(a statemachine.ActivityType) {
	h.Broadcast(Event{Type: TypeActivity, Activity: string(a)})
}

// StandingChanged implements statemachine.TimerObserver.
func (h *Hub) StandingChanged(standing bool) {
	h.Broadcast(Event{Type: TypeStanding, Standing: &standing})
}

// TimeRemainingChanged implements statemachine.TimerObserver.
func (h *Hub) TimeRemainingChanged(seconds int) {
	h.Broadcast(Event{Type: TypeTimeRemaining, TimeRemaining: &seconds})
}

// PausedChanged implements statemachine.TimerObserver.
func (h *Hub) PausedChanged(paused bool) {
	h.Broadcast(Event{Type: TypePaused, Paused: &paused})
}

// Broadcast queues ev for every client.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.removeLocked(c, "slow client")
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.errLog != nil {
			h.errLog.Printf("Feed upgrade failed: %v", err)
		}
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer)}

	h.mu.Lock()
	snap := h.snapshot
	c.send <- Event{Type: TypeSnapshot, Snapshot: &snap, At: time.Now().UTC()}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Log(diaglog.LogEntry{
		Component: diaglog.ComponentFeed,
		Event:     diaglog.EventFeedClient,
		Reason:    "connected",
		Payload:   map[string]interface{}{"clients": n},
	})

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.mu.Lock()
			h.removeLocked(c, "disconnected")
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) removeLocked(c *client, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Log(diaglog.LogEntry{
		Component: diaglog.ComponentFeed,
		Event:     diaglog.EventFeedClient,
		Reason:    reason,
		Payload:   map[string]interface{}{"clients": len(h.clients)},
	})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c, "shutdown")
	}
}

// Server is the HTTP listener for a Hub.
type Server struct {
	hub  *Hub
	ln   net.Listener
	http *http.Server
}

// Listen binds addr and starts serving hub at /events.
func Listen(addr string, hub *Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/events", hub)

	s := &Server{
		hub:  hub,
		ln:   ln,
		http: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && hub.errLog != nil {
			hub.errLog.Printf("Feed server stopped: %v", err)
		}
	}()
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown disconnects clients and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

package server

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/mule-ai/inkdash/internal/scheduler"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Event is pushed to every connected client.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// FrameEvent announces a newly rendered frame. Clients fetch the PNG from
// /api/frames/{instance}.
type FrameEvent struct {
	Instance   string    `json:"instance"`
	Plugin     string    `json:"plugin"`
	RunID      string    `json:"run_id"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Hub fans events out to websocket clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     logr.Logger
}

func NewHub(l logr.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     l.WithName("events"),
	}
}

// Run dispatches events until ctx is cancelled and then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				_ = c.Close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.V(1).Info("Client connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				_ = c.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.V(1).Info("Client disconnected", "clients", n)

		case ev := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteJSON(ev); err != nil {
					h.logger.Error(err, "Dropping client")
					delete(h.clients, c)
					_ = c.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues ev. Events are dropped while the queue is full.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.V(1).Info("Event queue full, dropping event", "type", ev.Type)
	}
}

func (h *Hub) PublishFrame(f scheduler.Frame) {
	h.Publish(Event{
		Type: "frame_update",
		Data: FrameEvent{
			Instance:   f.Instance,
			Plugin:     f.Plugin,
			RunID:      f.RunID,
			RenderedAt: f.RenderedAt,
		},
	})
}

// eventsHandler upgrades requests and keeps the connections alive.
type eventsHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logr.Logger
}

func newEventsHandler(hub *Hub, allowedOrigins []string, l logr.Logger) *eventsHandler {
	return &eventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: l,
	}
}

func (h *eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(err, "Websocket upgrade failed", "request_id", RequestIDFrom(r.Context()))
		return
	}
	select {
	case h.hub.register <- conn:
		go h.keepAlive(conn)
	case <-h.hub.done:
		_ = conn.Close()
	}
}

func (h *eventsHandler) keepAlive(conn *websocket.Conn) {
	done := make(chan struct{})
	defer func() {
		close(done)
		select {
		case h.hub.unregister <- conn:
		case <-h.hub.done:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	// Clients never send anything; reading drives pong and close handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.V(1).Info("Websocket closed", "error", err.Error())
			}
			return
		}
	}
}

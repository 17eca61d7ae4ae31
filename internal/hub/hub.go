// Package hub streams service events to HTTP clients as Server-Sent Events.
//
// Every frame carries a sequence id and the event type:
//
//	id: 12
//	event: action_applied
//	data: {"kind":"update_uri","name":"printer_1",...}
//
// Clients may narrow the stream with ?types=action_applied,reconcile_complete
// and resume after a reconnect with the Last-Event-ID header. Resumption is
// served from a short backlog; older frames are gone.
package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// keepAliveInterval is how often an idle stream gets a comment line
	keepAliveInterval = 30 * time.Second

	// backlogSize is how many recent frames are kept for resuming clients
	backlogSize  = 64
	clientBuffer = backlogSize
)

type frame struct {
	id        uint64
	eventType string
	data      []byte
}

func (f frame) encode() []byte {
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", f.id, f.eventType, f.data))
}

type published struct {
	eventType string
	payload   interface{}
}

// Client is one connected event stream
type Client struct {
	id     string
	types  map[string]bool // empty means every type
	after  uint64          // resume point from Last-Event-ID
	frames chan frame
}

func (c *Client) wants(eventType string) bool {
	return len(c.types) == 0 || c.types[eventType]
}

// Hub fans published events out to stream clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	lastID  uint64

	register   chan *Client
	unregister chan *Client
	publish    chan published
	done       chan struct{}

	// backlog is only touched by Run
	backlog []frame

	logger zerolog.Logger
}

// New creates a new Hub
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan published, 256),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.frames)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.replay(client)
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client", client.id).Int("total", total).Msg("Event stream opened")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.frames)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client", client.id).Int("total", total).Msg("Event stream closed")

		case p := <-h.publish:
			data, err := json.Marshal(p.payload)
			if err != nil {
				h.logger.Error().Err(err).Str("event", p.eventType).Msg("Failed to marshal event")
				continue
			}

			h.mu.Lock()
			h.lastID++
			f := frame{id: h.lastID, eventType: p.eventType, data: data}
			h.mu.Unlock()

			h.backlog = append(h.backlog, f)
			if len(h.backlog) > backlogSize {
				h.backlog = h.backlog[len(h.backlog)-backlogSize:]
			}

			h.mu.RLock()
			for client := range h.clients {
				h.deliver(client, f)
			}
			h.mu.RUnlock()
		}
	}
}

// replay sends the backlog frames a resuming client missed
func (h *Hub) replay(client *Client) {
	if client.after == 0 {
		return
	}
	for _, f := range h.backlog {
		if f.id > client.after {
			h.deliver(client, f)
		}
	}
}

func (h *Hub) deliver(client *Client, f frame) {
	if !client.wants(f.eventType) {
		return
	}
	select {
	case client.frames <- f:
	default:
		h.logger.Warn().Str("client", client.id).Uint64("id", f.id).Msg("Event stream client is slow, skipping frame")
	}
}

// Stop ends the event loop and closes every client stream
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Publish queues an event of the given type for every interested client
func (h *Hub) Publish(eventType string, payload interface{}) {
	select {
	case h.publish <- published{eventType: eventType, payload: payload}:
	default:
		h.logger.Warn().Str("event", eventType).Msg("Publish queue full, dropping event")
	}
}

// LastID returns the id of the most recently framed event
func (h *Hub) LastID() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastID
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// parseTypes reads ?types=a,b into a set
func parseTypes(raw string) map[string]bool {
	types := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = true
		}
	}
	return types
}

// ServeHTTP handles event stream connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		types:  parseTypes(r.URL.Query().Get("types")),
		frames: make(chan frame, clientBuffer),
	}
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		after, err := strconv.ParseUint(strings.TrimSpace(last), 10, 64)
		if err != nil {
			http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
			return
		}
		client.after = after
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-client.frames:
			if !ok {
				return
			}
			if _, err := w.Write(f.encode()); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

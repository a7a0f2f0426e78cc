package websocket

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/wricardo/pairbroker/game/broker"
	"github.com/wricardo/pairbroker/game/config"
)

// Hub tracks live clients and hands each one to the broker
type Hub struct {
	broker   *broker.Broker
	cfg      config.Config
	upgrader websocket.Upgrader

	// Registered clients
	clients map[*Client]bool
	count   atomic.Int64

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	quit chan struct{}
	done chan struct{}
}

// NewHub creates a new WebSocket hub backed by b
func NewHub(b *broker.Broker, cfg config.Config) *Hub {
	h := &Hub{
		broker:     b,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker allows every origin when the list is empty
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run starts the hub's event loop. It returns after Close.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.quit:
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return
		}
	}
}

// Close disconnects every client and stops Run
func (h *Hub) Close() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and admits the connection to matchmaking
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn, h.cfg.SendBuffer)

	// The handle must exist before the hub or readPump can see the client.
	// Events sent before writePump starts wait in the send buffer.
	client.handle = h.broker.Connect(client)

	select {
	case h.register <- client:
	case <-h.quit:
		h.broker.Disconnect(client.handle)
		client.close()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to the live set
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))

	log.Printf("Client %s connected (total clients: %d)", client.remoteAddr, len(h.clients))
}

// unregisterClient removes a client and retires its broker handle
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.count.Store(int64(len(h.clients)))

	h.broker.Disconnect(client.handle)
	client.close()

	log.Printf("Client %s disconnected (remaining clients: %d)", client.remoteAddr, len(h.clients))
}

// leave asks the hub loop to drop client; safe after the hub stopped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

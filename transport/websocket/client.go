package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/pairbroker/game/broker"
)

// Inbound event names
const (
	EventMove  = "move"
	EventReset = "reset"
)

// Message is one JSON frame in either direction
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// StartGameData is the payload of a startGame event
type StartGameData struct {
	IsFirst bool `json:"isFirst"`
}

// Client is one websocket connection. It implements broker.Conn.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	handle     *broker.Handle
	remoteAddr string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, buffer int) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, buffer),
	}
	if conn != nil {
		c.remoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Send queues evt for writePump without blocking.
// A client whose buffer is full is closed.
func (c *Client) Send(evt broker.Event) {
	data, err := EncodeEvent(evt)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", evt.Kind, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Client %s send buffer full, closing", c.remoteAddr)
		c.closeLocked()
	}
}

// close stops further sends and lets writePump finish. Safe to call twice.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// EncodeEvent renders a broker event as a wire message
func EncodeEvent(evt broker.Event) ([]byte, error) {
	msg := Message{Event: string(evt.Kind)}

	switch evt.Kind {
	case broker.EventStartGame:
		data, err := json.Marshal(StartGameData{IsFirst: evt.IsFirst})
		if err != nil {
			return nil, err
		}
		msg.Data = data
	case broker.EventOpponentMove:
		msg.Data = evt.Payload
	}

	return json.Marshal(msg)
}

// dispatch hands one inbound frame to the broker.
// Malformed frames and unknown events are dropped.
func (c *Client) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Ignoring malformed message from %s: %v", c.remoteAddr, err)
		return
	}

	switch msg.Event {
	case EventMove:
		c.hub.broker.Relay(c.handle, msg.Data)
	case EventReset:
		c.hub.broker.Reset(c.handle)
	default:
		log.Printf("Ignoring unknown event %q from %s", msg.Event, c.remoteAddr)
	}
}

// readPump pumps messages from the WebSocket connection to the broker
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PongWait
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.dispatch(data)
	}
}

// writePump pumps messages from the broker to the WebSocket connection.
// Each event goes out as its own frame.
func (c *Client) writePump() {
	writeWait := c.hub.cfg.WriteWait
	ticker := time.NewTicker(c.hub.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

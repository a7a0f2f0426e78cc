package broker

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventKind names an outbound session event
type EventKind string

const (
	EventStartGame          EventKind = "startGame"
	EventOpponentMove       EventKind = "opponentMove"
	EventOpponentDisconnect EventKind = "opponentDisconnect"
)

// Event is delivered to a connection by the broker
type Event struct {
	Kind EventKind

	// IsFirst is set on EventStartGame. Exactly one side of a session is first.
	IsFirst bool

	// Payload is the opponent's move data, untouched. Set on EventOpponentMove.
	Payload json.RawMessage
}

// Conn is the transport side of a connection.
// Send must not block; delivery failures are the transport's problem.
type Conn interface {
	Send(Event)
}

// State is the lifecycle position of a Handle
type State int

const (
	StateUnpaired State = iota
	StateQueued
	StatePaired
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StateQueued:
		return "queued"
	case StatePaired:
		return "paired"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Token is an opaque per-connection session capability
type Token string

// NewToken returns a random token
func NewToken() Token {
	return Token(uuid.NewString())
}

// Handle is the broker's record of one live connection.
// token and state are guarded by the owning Broker's mutex.
type Handle struct {
	id    string
	conn  Conn
	token Token
	state State
}

func newHandle(conn Conn) *Handle {
	return &Handle{
		id:    uuid.NewString(),
		conn:  conn,
		state: StateUnpaired,
	}
}

// ID returns the process-local connection identifier
func (h *Handle) ID() string {
	return h.id
}

// Conn returns the transport connection behind the handle
func (h *Handle) Conn() Conn {
	return h.conn
}

func (h *Handle) send(evt Event) {
	if h.conn != nil {
		h.conn.Send(evt)
	}
}

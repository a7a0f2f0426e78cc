package broker

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of broker state
type Stats struct {
	Connected       int       `json:"connected"`
	Queued          int       `json:"queued"`
	ActiveSessions  int       `json:"active_sessions"`
	SessionsStarted uint64    `json:"sessions_started"`
	MovesRelayed    uint64    `json:"moves_relayed"`
	MovesDropped    uint64    `json:"moves_dropped"`
	StartedAt       time.Time `json:"started_at"`
}

// Option configures a Broker
type Option func(*Broker)

// WithLogger sets the logger used for lifecycle messages
func WithLogger(logger *log.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTokenGenerator replaces the random session token source
func WithTokenGenerator(gen func() Token) Option {
	return func(b *Broker) {
		b.registry = NewRegistry(gen)
	}
}

// Broker matches waiting connections and relays moves between partners.
// Every exported method is one critical section under mu.
type Broker struct {
	mu       sync.Mutex
	queue    *Queue
	registry *Registry
	logger   *log.Logger

	connected       int
	sessionsStarted uint64
	movesRelayed    uint64
	movesDropped    uint64
	startedAt       time.Time
}

// New creates a broker with an empty queue and registry
func New(opts ...Option) *Broker {
	b := &Broker{
		queue:     NewQueue(),
		registry:  NewRegistry(nil),
		logger:    log.Default(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect registers a new connection and admits it to matchmaking
func (b *Broker) Connect(conn Conn) *Handle {
	h := newHandle(conn)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.connected++
	b.admitLocked(h)
	return h
}

// Relay forwards payload to h's opponent as an opponentMove event.
// It reports whether the move was delivered; a missing opponent is not an error.
func (b *Broker) Relay(h *Handle, payload []byte) bool {
	if h == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if h.state != StatePaired {
		b.movesDropped++
		return false
	}

	opp, ok := b.registry.ResolveOpponent(h.token)
	if !ok {
		b.movesDropped++
		return false
	}

	data := make(json.RawMessage, len(payload))
	copy(data, payload)
	opp.send(Event{Kind: EventOpponentMove, Payload: data})
	b.movesRelayed++
	return true
}

// Reset leaves the current session, if any, and rejoins matchmaking.
// Queued and terminated handles are left alone.
func (b *Broker) Reset(h *Handle) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch h.state {
	case StatePaired:
		b.leaveSessionLocked(h)
		b.admitLocked(h)
	case StateUnpaired:
		b.admitLocked(h)
	}
}

// Disconnect removes h from the queue or its session and retires it.
// Repeated calls are no-ops.
func (b *Broker) Disconnect(h *Handle) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch h.state {
	case StateTerminated:
		return
	case StateQueued:
		b.queue.Remove(h)
	case StatePaired:
		b.leaveSessionLocked(h)
	}

	h.state = StateTerminated
	b.connected--
	b.logger.Printf("Connection %s disconnected (queued: %d, sessions: %d)",
		h.id, b.queue.Len(), b.registry.Sessions())
}

// State returns h's lifecycle state
func (b *Broker) State(h *Handle) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return h.state
}

// Token returns h's current session token, empty when not paired
func (b *Broker) Token(h *Handle) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	return h.token
}

// Opponent returns h's current partner, or nil
func (b *Broker) Opponent(h *Handle) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	opp, ok := b.registry.ResolveOpponent(h.token)
	if !ok {
		return nil
	}
	return opp
}

// Stats returns a snapshot of queue depth, sessions and counters
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Connected:       b.connected,
		Queued:          b.queue.Len(),
		ActiveSessions:  b.registry.Sessions(),
		SessionsStarted: b.sessionsStarted,
		MovesRelayed:    b.movesRelayed,
		MovesDropped:    b.movesDropped,
		StartedAt:       b.startedAt,
	}
}

// admitLocked pairs h with the oldest waiting handle or queues it.
// The waiter always plays first.
func (b *Broker) admitLocked(h *Handle) {
	opp, ok := b.queue.DequeueFront()
	if !ok || opp == h {
		b.queue.Enqueue(h)
		h.state = StateQueued
		b.logger.Printf("Connection %s queued (queued: %d)", h.id, b.queue.Len())
		return
	}

	own, theirs := b.registry.IssueSession()
	b.registry.Pair(h, own, opp, theirs)
	h.state = StatePaired
	opp.state = StatePaired
	b.sessionsStarted++

	opp.send(Event{Kind: EventStartGame, IsFirst: true})
	h.send(Event{Kind: EventStartGame, IsFirst: false})

	b.logger.Printf("Paired %s with %s (sessions: %d)", opp.id, h.id, b.registry.Sessions())
}

// leaveSessionLocked notifies h's opponent and tears the session down.
// The opponent is left unpaired until it resets.
func (b *Broker) leaveSessionLocked(h *Handle) {
	opp, ok := b.registry.Teardown(h.token)
	h.token = ""
	h.state = StateUnpaired
	if !ok {
		return
	}

	if opp.state == StatePaired {
		opp.state = StateUnpaired
	}
	opp.send(Event{Kind: EventOpponentDisconnect})
}

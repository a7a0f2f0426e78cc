package service

import (
	"context"
	"time"

	"github.com/wricardo/pairbroker/game/broker"
)

// LobbyService defines the lobby operations exposed to API and MCP clients
type LobbyService interface {
	GetStats(ctx context.Context) (*LobbyStats, error)
	Health(ctx context.Context) (*HealthInfo, error)
}

// StatsSource is satisfied by *broker.Broker
type StatsSource interface {
	Stats() broker.Stats
}

// ClientCounter is satisfied by the websocket hub
type ClientCounter interface {
	ClientCount() int
}

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	broker  StatsSource
	clients ClientCounter
	version string
	now     func() time.Time
}

// NewLobbyService creates a lobby service. clients may be nil.
func NewLobbyService(b StatsSource, clients ClientCounter, version string) LobbyService {
	return &lobbyServiceImpl{
		broker:  b,
		clients: clients,
		version: version,
		now:     time.Now,
	}
}

// GetStats returns the current lobby statistics
func (s *lobbyServiceImpl) GetStats(ctx context.Context) (*LobbyStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := s.broker.Stats()
	stats := &LobbyStats{
		Connected:       snapshot.Connected,
		Queued:          snapshot.Queued,
		ActiveSessions:  snapshot.ActiveSessions,
		SessionsStarted: snapshot.SessionsStarted,
		MovesRelayed:    snapshot.MovesRelayed,
		MovesDropped:    snapshot.MovesDropped,
		StartedAt:       snapshot.StartedAt,
		Uptime:          s.uptime(snapshot.StartedAt),
	}
	if s.clients != nil {
		stats.Clients = s.clients.ClientCount()
	}

	return stats, nil
}

// Health reports liveness and build version
func (s *lobbyServiceImpl) Health(ctx context.Context) (*HealthInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &HealthInfo{
		Status:  "ok",
		Version: s.version,
		Uptime:  s.uptime(s.broker.Stats().StartedAt),
	}, nil
}

func (s *lobbyServiceImpl) uptime(since time.Time) string {
	return s.now().Sub(since).Truncate(time.Second).String()
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wricardo/pairbroker/game/broker"
)

type fakeBroker struct {
	stats broker.Stats
}

func (f *fakeBroker) Stats() broker.Stats { return f.stats }

type fakeHub int

func (f fakeHub) ClientCount() int { return int(f) }

func newTestService(stats broker.Stats, clients ClientCounter) *lobbyServiceImpl {
	svc := NewLobbyService(&fakeBroker{stats: stats}, clients, "1.2.3").(*lobbyServiceImpl)
	svc.now = func() time.Time { return stats.StartedAt.Add(90 * time.Second) }
	return svc
}

func TestLobbyService_GetStats(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(broker.Stats{
		Connected:       5,
		Queued:          1,
		ActiveSessions:  2,
		SessionsStarted: 7,
		MovesRelayed:    40,
		MovesDropped:    2,
		StartedAt:       started,
	}, fakeHub(5))

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.Clients != 5 || stats.Connected != 5 {
		t.Errorf("Expected 5 clients/connected, got %d/%d", stats.Clients, stats.Connected)
	}
	if stats.Queued != 1 || stats.ActiveSessions != 2 {
		t.Errorf("Expected 1 queued / 2 sessions, got %d / %d", stats.Queued, stats.ActiveSessions)
	}
	if stats.SessionsStarted != 7 || stats.MovesRelayed != 40 || stats.MovesDropped != 2 {
		t.Errorf("Counters not copied: %+v", stats)
	}
	if stats.Uptime != "1m30s" {
		t.Errorf("Expected uptime 1m30s, got %s", stats.Uptime)
	}
}

func TestLobbyService_NilClients(t *testing.T) {
	svc := newTestService(broker.Stats{StartedAt: time.Now()}, nil)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Clients != 0 {
		t.Errorf("Expected 0 clients, got %d", stats.Clients)
	}
}

func TestLobbyService_Health(t *testing.T) {
	svc := newTestService(broker.Stats{StartedAt: time.Now()}, nil)

	health, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "ok" || health.Version != "1.2.3" {
		t.Errorf("Unexpected health: %+v", health)
	}
}

func TestLobbyService_CancelledContext(t *testing.T) {
	svc := newTestService(broker.Stats{StartedAt: time.Now()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GetStats(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, err := svc.Health(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLobbyService_RealBroker(t *testing.T) {
	b := broker.New()
	svc := NewLobbyService(b, nil, "dev")

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Connected != 0 || stats.Queued != 0 {
		t.Errorf("Expected empty lobby, got %+v", stats)
	}
}

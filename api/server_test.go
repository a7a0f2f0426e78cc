package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/pairbroker/game/broker"
	"github.com/wricardo/pairbroker/game/config"
	"github.com/wricardo/pairbroker/game/service"
	"github.com/wricardo/pairbroker/transport/websocket"
)

// MockLobbyService implements service.LobbyService for testing
type MockLobbyService struct {
	GetStatsFunc func(ctx context.Context) (*service.LobbyStats, error)
	HealthFunc   func(ctx context.Context) (*service.HealthInfo, error)
}

func (m *MockLobbyService) GetStats(ctx context.Context) (*service.LobbyStats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return &service.LobbyStats{Queued: 1, ActiveSessions: 2}, nil
}

func (m *MockLobbyService) Health(ctx context.Context) (*service.HealthInfo, error) {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return &service.HealthInfo{Status: "ok", Version: "test"}, nil
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestServer_Health(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health service.HealthInfo
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Expected status ok, got %s", health.Status)
	}
}

func TestServer_Stats(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := NewServer(&MockLobbyService{}, nil, "")

		req := httptest.NewRequest("GET", "/api/stats", nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}

		var stats service.LobbyStats
		if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if stats.Queued != 1 || stats.ActiveSessions != 2 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
	})

	t.Run("service error", func(t *testing.T) {
		server := NewServer(&MockLobbyService{
			GetStatsFunc: func(ctx context.Context) (*service.LobbyStats, error) {
				return nil, errors.New("boom")
			},
		}, nil, "")

		req := httptest.NewRequest("GET", "/api/stats", nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["error"] != "boom" {
			t.Errorf("Expected error message, got %v", body)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		server := NewServer(&MockLobbyService{}, nil, "")

		req := httptest.NewRequest("POST", "/api/stats", nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})
}

func TestServer_Index(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/api", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/stats") {
		t.Errorf("Expected endpoint listing, got %s", w.Body.String())
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>lobby</h1>"), 0644); err != nil {
		t.Fatalf("Failed to write static file: %v", err)
	}

	server := NewServer(&MockLobbyService{}, nil, dir)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "lobby") {
		t.Errorf("Expected index.html contents, got %s", w.Body.String())
	}
}

func TestServer_WebSocketWithoutHub(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestServer_WebSocketEndToEnd(t *testing.T) {
	b := broker.New(broker.WithLogger(log.New(io.Discard, "", 0)))
	hub := websocket.NewHub(b, config.Default())
	go hub.Run()
	defer hub.Close()

	lobby := service.NewLobbyService(b, hub, "test")
	ts := httptest.NewServer(NewServer(lobby, hub, ""))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	first, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.Stats().Queued != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	second, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer second.Close()

	for _, conn := range []*gorillaws.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read startGame: %v", err)
		}
		if msg.Event != "startGame" {
			t.Errorf("Expected startGame, got %s", msg.Event)
		}
	}

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	defer resp.Body.Close()

	var stats service.LobbyStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.ActiveSessions != 1 || stats.SessionsStarted != 1 {
		t.Errorf("Expected 1 active session, got %+v", stats)
	}
}

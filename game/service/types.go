package service

import "time"

// LobbyStats describes the matchmaking lobby at a point in time
type LobbyStats struct {
	Clients         int       `json:"clients"`
	Connected       int       `json:"connected"`
	Queued          int       `json:"queued"`
	ActiveSessions  int       `json:"active_sessions"`
	SessionsStarted uint64    `json:"sessions_started"`
	MovesRelayed    uint64    `json:"moves_relayed"`
	MovesDropped    uint64    `json:"moves_dropped"`
	StartedAt       time.Time `json:"started_at"`
	Uptime          string    `json:"uptime"`
}

// HealthInfo is returned by the health endpoint
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

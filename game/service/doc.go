// Package service provides the read-only lobby view used by the API and MCP layers.
//
// The service package implements:
//   - Lobby statistics (queue depth, active sessions, relay counters)
//   - Health reporting
//
// Architecture:
//
// The service layer sits between the transports (HTTP/MCP) and the broker.
// It never mutates broker state; pairing, relay and teardown are driven
// only by websocket connections.
//
// Usage:
//
//	lobby := service.NewLobbyService(b, hub, "1.0.0")
//	stats, err := lobby.GetStats(ctx)
package service

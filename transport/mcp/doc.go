// Package mcp provides a Model Context Protocol server for the pairing broker.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Read-only tools backed by the REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - lobby_stats: queue depth, active sessions and relay counters
//   - health: liveness and version
//   - protocol_guide: the websocket message protocol
//
// Architecture:
//
// The client never touches the broker directly. Every tool call is proxied
// to the HTTP API, so the same binary can serve MCP over stdio against a
// broker running elsewhere.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3000", "1.0.0")
//	server.ServeStdio(client.GetMCPServer())
package mcp

// Package api provides the HTTP surface of the pairing broker.
//
// The api package implements:
//   - WebSocket upgrade for matchmaking connections
//   - Lobby statistics and health endpoints
//   - Static file serving for the browser client
//
// Endpoints:
//
//   - GET /ws - Upgrade to a websocket and join matchmaking
//   - GET /api - List available endpoints
//   - GET /api/health - Liveness and version
//   - GET /api/stats - Queue depth, active sessions and relay counters
//   - GET /* - Static files from the configured directory
//
// Response Format:
//
// All /api endpoints return JSON. Errors are returned as {"error": "message"}
// with an appropriate HTTP status.
package api

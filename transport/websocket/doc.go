// Package websocket provides WebSocket transport for the pairing broker.
//
// The websocket package implements:
//   - Upgrading HTTP requests and admitting each connection to the broker
//   - Decoding inbound move/reset frames and dispatching them
//   - Encoding broker events as outbound frames
//   - Keepalive pings and slow-consumer eviction
//
// Architecture:
//
// A central Hub tracks every live Client. Each Client has a read goroutine
// that dispatches frames straight to the broker and a write goroutine that
// drains a buffered send channel. The broker never blocks on a client: when
// the buffer is full the client is closed and its disconnect flows back
// through the hub.
//
// Message Protocol:
//
// Every frame is one JSON object {"event": ..., "data": ...}:
//   - Incoming: {"event":"move","data":{"slot":4}}, {"event":"reset"}
//   - Outgoing: {"event":"startGame","data":{"isFirst":true}},
//     {"event":"opponentMove","data":{"slot":4}}, {"event":"opponentDisconnect"}
//
// Move data is relayed byte for byte and never interpreted.
//
// Usage:
//
//	hub := websocket.NewHub(broker.New(), config.Default())
//	go hub.Run()
//	defer hub.Close()
//
//	http.HandleFunc("/ws", hub.ServeWS)
package websocket

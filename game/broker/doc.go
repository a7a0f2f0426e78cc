// Package broker pairs anonymous connections into two-party sessions.
//
// The broker package implements:
//   - A FIFO pairing queue of waiting connections
//   - A token-keyed session registry for O(1) opponent lookup
//   - Opaque move relay between the two sides of a session
//   - Disconnect and reset teardown
//
// Core Types:
//
// Broker owns the Queue and the Registry and is the only type with
// business logic. Handle is the broker-side view of one live connection; the
// transport supplies a Conn that receives outbound events.
//
// Session Tokens:
//
// When two connections pair, each receives its own random token. A token is
// the registry key that resolves to the holder's opponent, so neither side
// keeps a direct reference to the other. Tokens are uuid v4 strings.
//
// Lifecycle:
//
//	Unpaired -> Queued -> Paired -> Terminated
//	               ^         |
//	               +- reset -+
//
// Concurrency:
//
// All Broker operations run under a single mutex. Queue and Registry are not
// safe for concurrent use on their own. Conn.Send must never block.
//
// Usage:
//
//	b := broker.New()
//	h := b.Connect(conn)         // pairs with the oldest waiter, or queues
//	b.Relay(h, []byte(`{"slot":4}`))
//	b.Reset(h)                   // leave the session, rejoin matchmaking
//	b.Disconnect(h)
package broker

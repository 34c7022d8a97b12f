// Package relay connects sessions to a bridge and implements one.
//
// The bridge is an untrusted store-and-forward service: it routes
// topic-addressed socket messages to subscribers and never sees plaintext.
// This package offers:
//   - Client, a domain.Transport speaking JSON socket messages over a
//     websocket.
//   - Hub, a bridge server. Publications to a topic go to every current
//     subscriber; with no subscribers they are queued in a
//     domain.MessageQueue until someone subscribes or the TTL lapses.
//   - Pipe, a domain.Transport attached to a Hub in-process, used for
//     embedding and tests.
//
// Transport failures are wrapped with domain.ErrTransport.
package relay

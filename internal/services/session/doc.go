// Package session runs the dapp side of a bridge-relayed wallet session.
//
// An Engine owns a session key, a handshake topic and its own client topic.
// It exposes a pairing URI for the wallet to scan, proposes the session over
// the handshake topic, and then exchanges encrypted JSON-RPC traffic with the
// wallet's peer topic until either side disconnects.
//
// Lifecycle
//
//	pending --first approval--> connected --update--> connected
//	pending|connected --disconnect, rejection or failure--> disconnected
//
// Disconnected is terminal. Connect may be called once per Engine; a
// rejected proposal surfaces as domain.ErrSessionRejected (which also matches
// events.ErrCancelled), any other failure as *domain.SessionFailedError.
//
// Inbound messages that fail to decrypt or decode are logged and dropped.
package session

// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (wire/state) and contracts (interfaces) only.
//
// Session types describe the dapp side of a bridge-relayed session with a
// wallet: the client metadata exchanged during the handshake, the status
// returned once the wallet approves, and the record persisted so a session can
// be resumed by a later process.
package domain

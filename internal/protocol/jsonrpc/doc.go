// Package jsonrpc holds the JSON-RPC 2.0 message shapes exchanged with the
// wallet and the payload id generator used to correlate them.
package jsonrpc

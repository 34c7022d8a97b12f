// Package envelope seals JSON-RPC messages into bridge socket messages and
// opens them again.
package envelope

import (
	"encoding/json"
	"fmt"

	"dappconnect/internal/domain"
	"dappconnect/internal/protocol/jsonrpc"
)

// Seal marshals v, encrypts it under key and addresses the result to topic.
// Encryption completes before the message exists, so a caller can never
// publish plaintext.
func Seal(c domain.Cipher, key []byte, topic string, v any, silent bool) (domain.SocketMessage, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return domain.SocketMessage{}, fmt.Errorf("marshal message: %w", err)
	}
	payload, err := c.Encrypt(key, plain)
	if err != nil {
		return domain.SocketMessage{}, fmt.Errorf("encrypt message: %w", err)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return domain.SocketMessage{}, fmt.Errorf("marshal payload: %w", err)
	}
	return domain.SocketMessage{
		Topic:   topic,
		Type:    domain.MessagePub,
		Payload: string(b),
		Silent:  silent,
	}, nil
}

// Open decrypts msg under key and decodes the JSON-RPC message inside. The
// raw plaintext is returned alongside for listeners that want the exact
// JSON.
func Open(c domain.Cipher, key []byte, msg domain.SocketMessage) (jsonrpc.Message, json.RawMessage, error) {
	var payload domain.EncryptionPayload
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		return jsonrpc.Message{}, nil, fmt.Errorf("%w: payload: %v", domain.ErrProtocol, err)
	}
	plain, err := c.Decrypt(key, payload)
	if err != nil {
		return jsonrpc.Message{}, nil, fmt.Errorf("decrypt message: %w", err)
	}
	m, err := jsonrpc.Decode(plain)
	if err != nil {
		return jsonrpc.Message{}, nil, err
	}
	return m, plain, nil
}

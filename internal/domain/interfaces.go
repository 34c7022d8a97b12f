package domain

import (
	"context"
	"time"
)

// Cipher seals and opens payloads under a session key. Encrypting the same
// plaintext twice must yield different payloads, and opening a payload with
// the wrong key or after tampering must fail.
type Cipher interface {
	Encrypt(key, plaintext []byte) (EncryptionPayload, error)
	Decrypt(key []byte, payload EncryptionPayload) ([]byte, error)
}

// Transport is a topic-addressed connection to a bridge. OnMessage is
// registered before Open; the callback runs on the transport's own goroutine.
type Transport interface {
	OnMessage(fn func(SocketMessage))
	Open(ctx context.Context, url string) error
	Subscribe(ctx context.Context, topic string) error
	Send(ctx context.Context, msg SocketMessage) error
	Close() error
}

// SessionStore persists connected sessions keyed by client id.
type SessionStore interface {
	SaveSession(ctx context.Context, s StoredSession) error
	LoadSession(ctx context.Context, clientID string) (StoredSession, bool, error)
	DeleteSession(ctx context.Context, clientID string) error
}

// MessageQueue holds publications for topics nobody is subscribed to yet.
type MessageQueue interface {
	Push(ctx context.Context, msg SocketMessage, ttl time.Duration) error
	Drain(ctx context.Context, topic string) ([]SocketMessage, error)
}

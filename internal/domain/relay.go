package domain

// MessageType distinguishes bridge publications from subscriptions.
type MessageType string

const (
	MessagePub MessageType = "pub"
	MessageSub MessageType = "sub"
)

// SocketMessage is the unit exchanged with the bridge. Payload carries a
// JSON-encoded EncryptionPayload for publications and is empty for
// subscriptions.
type SocketMessage struct {
	Topic   string      `json:"topic"`
	Type    MessageType `json:"type"`
	Payload string      `json:"payload"`
	Silent  bool        `json:"silent"`
}

// EncryptionPayload is a sealed JSON-RPC message. All fields are hex.
type EncryptionPayload struct {
	Data string `json:"data"`
	HMAC string `json:"hmac"`
	IV   string `json:"iv"`
}

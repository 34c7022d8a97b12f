package domain

// ClientMeta describes a dapp or wallet to its counterparty.
type ClientMeta struct {
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
	Name        string   `json:"name"`
}

// Validate reports the first missing metadata field as a *ValidationError.
func (m ClientMeta) Validate() error {
	switch {
	case m.Description == "":
		return &ValidationError{Field: "description"}
	case m.Name == "":
		return &ValidationError{Field: "name"}
	case m.URL == "":
		return &ValidationError{Field: "url"}
	}
	for _, icon := range m.Icons {
		if icon != "" {
			return nil
		}
	}
	return &ValidationError{Field: "icons"}
}

// Clone returns a deep copy so callers can't alias the icon slice.
func (m ClientMeta) Clone() ClientMeta {
	m.Icons = append([]string(nil), m.Icons...)
	return m
}

// State is the lifecycle position of a session.
type State int

const (
	StatePending State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// SessionStatus is the session data handed back to callers once a wallet
// approves. Nil fields have not been reported by the wallet.
type SessionStatus struct {
	ChainID  *int64      `json:"chainId,omitempty"`
	Accounts []string    `json:"accounts,omitempty"`
	PeerID   string      `json:"peerId,omitempty"`
	PeerMeta *ClientMeta `json:"peerMeta,omitempty"`
}

// Reason is the payload of failure and disconnect notifications.
type Reason struct {
	Message string `json:"message"`
}

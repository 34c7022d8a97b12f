package domain

// SessionRequest is the single params entry of a session proposal.
type SessionRequest struct {
	PeerID   string     `json:"peerId"`
	PeerMeta ClientMeta `json:"peerMeta"`
	ChainID  *int64     `json:"chainId"`
}

// SessionResult is the result a wallet returns for a session proposal.
type SessionResult struct {
	PeerID    string      `json:"peerId"`
	PeerMeta  *ClientMeta `json:"peerMeta"`
	Approved  bool        `json:"approved"`
	ChainID   *int64      `json:"chainId"`
	NetworkID *int64      `json:"networkId"`
	Accounts  []string    `json:"accounts"`
	RPCURL    *string     `json:"rpcUrl,omitempty"`
}

// SessionParams is the single params entry of a session update. The zero
// value, with every optional field nil, tells the peer the session is over.
type SessionParams struct {
	Approved  bool     `json:"approved"`
	ChainID   *int64   `json:"chainId"`
	NetworkID *int64   `json:"networkId"`
	Accounts  []string `json:"accounts"`
	RPCURL    *string  `json:"rpcUrl,omitempty"`
}

// StoredSession is everything needed to resume a connected session in a
// later process. Key is the lowercase hex session key.
type StoredSession struct {
	Key            string      `json:"key"`
	ClientID       string      `json:"clientId"`
	ClientMeta     ClientMeta  `json:"clientMeta"`
	PeerID         string      `json:"peerId"`
	PeerMeta       *ClientMeta `json:"peerMeta,omitempty"`
	HandshakeID    int64       `json:"handshakeId"`
	HandshakeTopic string      `json:"handshakeTopic"`
	Bridge         string      `json:"bridge"`
	ChainID        *int64      `json:"chainId,omitempty"`
	Accounts       []string    `json:"accounts,omitempty"`
	Connected      bool        `json:"connected"`
}

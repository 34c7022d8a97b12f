package session

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Protocol methods handled by the engine itself.
const (
	MethodSessionRequest = "wc_sessionRequest"
	MethodSessionUpdate  = "wc_sessionUpdate"
	MethodExchangeKey    = "wc_exchangeKey"
)

// Engine notifications. Inbound peer requests are also published under their
// method name.
const (
	EventConnect       = "connect"
	EventSessionUpdate = "session_update"
	EventSessionFailed = "session_failed"
	EventDisconnect    = "disconnect"
)

// Reasons carried by failure and disconnect notifications.
const (
	ReasonNotApproved      = "Not Approved"
	ReasonRejected         = "Session Rejected"
	ReasonDisconnected     = "Session disconnected"
	ReasonPeerDisconnected = "Session disconnected by peer"
)

// DefaultBridges returns the bridge pool used when none is configured.
func DefaultBridges() []string {
	return []string{
		"https://bridge.walletconnect.org",
		"https://a.bridge.walletconnect.org",
		"https://b.bridge.walletconnect.org",
		"https://c.bridge.walletconnect.org",
		"https://d.bridge.walletconnect.org",
	}
}

// DefaultSigningMethods returns the methods that need the user's attention
// on the wallet and are therefore sent non-silent.
func DefaultSigningMethods() []string {
	return []string{
		"eth_sendTransaction",
		"eth_signTransaction",
		"eth_sign",
		"eth_signTypedData",
		"eth_signTypedData_v1",
		"eth_signTypedData_v3",
		"eth_signTypedData_v4",
		"personal_sign",
		"wallet_addEthereumChain",
		"wallet_switchEthereumChain",
	}
}

// NormalizeBridge rewrites http(s) bridge URLs to the matching websocket
// scheme.
func NormalizeBridge(u string) string {
	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "ws://" + rest
	}
	return u
}

func isInternal(method string) bool {
	switch method {
	case MethodSessionRequest, MethodSessionUpdate, MethodExchangeKey:
		return true
	}
	return false
}

func isRejection(reason string) bool {
	return reason == ReasonNotApproved || reason == ReasonRejected
}

func pickBridge(r io.Reader, pool []string) (string, error) {
	if len(pool) == 0 {
		return "", fmt.Errorf("empty bridge pool")
	}
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(int64(len(pool))))
	if err != nil {
		return "", fmt.Errorf("pick bridge: %w", err)
	}
	return pool[n.Int64()], nil
}

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"dappconnect/internal/crypto"
	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/logctx"
	"dappconnect/internal/protocol/jsonrpc"
	"dappconnect/internal/protocol/uri"
	"dappconnect/internal/relay"
)

// Config describes a new session.
type Config struct {
	ClientMeta domain.ClientMeta
	// ChainID is proposed to the wallet when set.
	ChainID *int64
	// Bridge is used as given after scheme normalisation. When empty one is
	// picked uniformly at random from Bridges, or DefaultBridges.
	Bridge  string
	Bridges []string
}

// Option customises an Engine.
type Option func(*Engine)

// WithCipher replaces the default AES-256-CBC/HMAC cipher.
func WithCipher(c domain.Cipher) Option { return func(e *Engine) { e.cipher = c } }

// WithTransport replaces the default websocket transport.
func WithTransport(t domain.Transport) Option { return func(e *Engine) { e.transport = t } }

// WithStore persists the session on approval and forgets it on disconnect.
func WithStore(s domain.SessionStore) Option { return func(e *Engine) { e.store = s } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRand sets the entropy source for keys, topics and bridge selection.
func WithRand(r io.Reader) Option { return func(e *Engine) { e.rand = r } }

// WithSigningMethods replaces DefaultSigningMethods.
func WithSigningMethods(methods ...string) Option {
	return func(e *Engine) { e.signingMethods = methods }
}

// Engine is one dapp-side session. Its methods are safe for concurrent use.
type Engine struct {
	cipher         domain.Cipher
	transport      domain.Transport
	store          domain.SessionStore
	logger         *slog.Logger
	rand           io.Reader
	signingMethods []string

	events  *events.Correlator
	ids     *jsonrpc.IDGenerator
	signing map[string]struct{}
	logData *logctx.SessionData

	// Fixed at construction.
	key            []byte
	handshakeTopic string
	clientID       string
	bridge         string
	clientMeta     domain.ClientMeta

	mu            sync.Mutex
	state         domain.State
	connectCalled bool
	opened        bool
	closed        bool
	handshakeID   int64
	peerID        string
	peerMeta      *domain.ClientMeta
	chainID       *int64
	accounts      []string
}

// New validates cfg and prepares a pending session. No network I/O happens
// until Connect.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.ClientMeta.Validate(); err != nil {
		return nil, err
	}
	e := newEngine(opts)

	bridge := cfg.Bridge
	if bridge == "" {
		pool := cfg.Bridges
		if len(pool) == 0 {
			pool = DefaultBridges()
		}
		var err error
		if bridge, err = pickBridge(e.rand, pool); err != nil {
			return nil, err
		}
	}

	key, err := crypto.GenerateKey(e.rand)
	if err != nil {
		return nil, err
	}
	handshake, err := uuid.NewRandomFromReader(e.rand)
	if err != nil {
		return nil, fmt.Errorf("handshake topic: %w", err)
	}
	client, err := uuid.NewRandomFromReader(e.rand)
	if err != nil {
		return nil, fmt.Errorf("client id: %w", err)
	}

	e.key = key
	e.handshakeTopic = handshake.String()
	e.clientID = client.String()
	e.bridge = NormalizeBridge(bridge)
	e.clientMeta = cfg.ClientMeta.Clone()
	e.chainID = cloneInt(cfg.ChainID)
	e.state = domain.StatePending
	e.init()
	return e, nil
}

// Restore rebuilds a connected session from its stored record. Call Resume
// to reattach it to the bridge.
func Restore(s domain.StoredSession, opts ...Option) (*Engine, error) {
	if !s.Connected || s.PeerID == "" {
		return nil, fmt.Errorf("restore %s: %w", s.ClientID, domain.ErrNotConnected)
	}
	if err := s.ClientMeta.Validate(); err != nil {
		return nil, err
	}
	key, err := crypto.KeyFromHex(s.Key)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.ClientID, err)
	}

	e := newEngine(opts)
	e.key = key
	e.handshakeTopic = s.HandshakeTopic
	e.clientID = s.ClientID
	e.bridge = NormalizeBridge(s.Bridge)
	e.clientMeta = s.ClientMeta.Clone()
	e.state = domain.StateConnected
	e.connectCalled = true
	e.handshakeID = s.HandshakeID
	e.peerID = s.PeerID
	if s.PeerMeta != nil {
		m := s.PeerMeta.Clone()
		e.peerMeta = &m
	}
	e.chainID = cloneInt(s.ChainID)
	e.accounts = append([]string(nil), s.Accounts...)
	e.init()

	e.events.Track(s.HandshakeID, e.handleSessionResponse)
	return e, nil
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		cipher: crypto.AESCBCHMAC{},
		logger: slog.Default(),
		rand:   rand.Reader,
		events: events.NewCorrelator(),
		ids:    jsonrpc.NewIDGenerator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = relay.NewClient(e.logger)
	}
	methods := e.signingMethods
	if len(methods) == 0 {
		methods = DefaultSigningMethods()
	}
	e.signing = make(map[string]struct{}, len(methods))
	for _, m := range methods {
		e.signing[m] = struct{}{}
	}
	return e
}

func (e *Engine) init() {
	e.logData = &logctx.SessionData{
		ClientID:       e.clientID,
		HandshakeTopic: e.handshakeTopic,
		Bridge:         e.bridge,
	}
	e.transport.OnMessage(e.handleMessage)
}

// URI is the pairing URI for the wallet.
func (e *Engine) URI() string {
	return uri.Params{
		Topic:   e.handshakeTopic,
		Version: uri.Version,
		Bridge:  e.bridge,
		Key:     e.Key(),
	}.String()
}

// Key returns the session key as lowercase hex.
func (e *Engine) Key() string { return hex.EncodeToString(e.key) }

func (e *Engine) ClientID() string       { return e.clientID }
func (e *Engine) HandshakeTopic() string { return e.handshakeTopic }
func (e *Engine) Bridge() string         { return e.bridge }

func (e *Engine) State() domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Connected() bool { return e.State() == domain.StateConnected }

// Status snapshots the session data reported by the wallet.
func (e *Engine) Status() domain.SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Stored snapshots the session as a persistable record.
func (e *Engine) Stored() domain.StoredSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storedLocked()
}

// On subscribes fn to an engine notification or an inbound request method.
// Payloads are JSON: domain.SessionStatus for connect and session_update,
// domain.Reason for session_failed and disconnect, and the raw JSON-RPC
// request for peer methods.
func (e *Engine) On(name string, fn events.Handler) (remove func()) {
	return e.events.On(name, fn)
}

func (e *Engine) statusLocked() domain.SessionStatus {
	st := domain.SessionStatus{
		ChainID:  cloneInt(e.chainID),
		Accounts: append([]string(nil), e.accounts...),
		PeerID:   e.peerID,
	}
	if e.peerMeta != nil {
		m := e.peerMeta.Clone()
		st.PeerMeta = &m
	}
	return st
}

func (e *Engine) storedLocked() domain.StoredSession {
	st := e.statusLocked()
	return domain.StoredSession{
		Key:            hex.EncodeToString(e.key),
		ClientID:       e.clientID,
		ClientMeta:     e.clientMeta.Clone(),
		PeerID:         st.PeerID,
		PeerMeta:       st.PeerMeta,
		HandshakeID:    e.handshakeID,
		HandshakeTopic: e.handshakeTopic,
		Bridge:         e.bridge,
		ChainID:        st.ChainID,
		Accounts:       st.Accounts,
		Connected:      e.state == domain.StateConnected,
	}
}

func (e *Engine) logContext(ctx context.Context) context.Context {
	return logctx.WithSessionData(ctx, e.logData)
}

func (e *Engine) emit(name string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		e.logger.Error("encode notification", "event", name, "error", err)
		return
	}
	e.events.Emit(events.Event{Name: name, Payload: b})
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

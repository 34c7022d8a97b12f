package session_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dappconnect/internal/crypto"
	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/protocol/envelope"
	"dappconnect/internal/protocol/jsonrpc"
	"dappconnect/internal/protocol/uri"
	"dappconnect/internal/services/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dappMeta() domain.ClientMeta {
	return domain.ClientMeta{
		Description: "Test dapp",
		URL:         "https://dapp.example",
		Icons:       []string{"https://dapp.example/icon.png"},
		Name:        "Dapp",
	}
}

func walletMeta() *domain.ClientMeta {
	return &domain.ClientMeta{
		Description: "Test wallet",
		URL:         "https://wallet.example",
		Icons:       []string{"https://wallet.example/icon.png"},
		Name:        "Wallet",
	}
}

func i64(v int64) *int64 { return &v }

// fakeTransport records calls and lets tests inject inbound messages.
type fakeTransport struct {
	mu      sync.Mutex
	handler func(domain.SocketMessage)
	opens   int
	closes  int
	subs    []string
	sent    []domain.SocketMessage
	openErr error
	onSend  func(domain.SocketMessage)
}

func (f *fakeTransport) OnMessage(fn func(domain.SocketMessage)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Open(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *fakeTransport) Subscribe(_ context.Context, topic string) error {
	f.mu.Lock()
	f.subs = append(f.subs, topic)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(_ context.Context, msg domain.SocketMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		go hook(msg)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) deliver(msg domain.SocketMessage) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(msg)
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) sentMessages() []domain.SocketMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SocketMessage(nil), f.sent...)
}

// wallet plays the peer using only what the pairing URI reveals.
type wallet struct {
	t        *testing.T
	key      []byte
	topic    string
	peerID   string
	clientID string
	cipher   domain.Cipher
}

func pair(t *testing.T, e *session.Engine) *wallet {
	t.Helper()
	p, err := uri.Parse(e.URI())
	if err != nil {
		t.Fatalf("Parse URI: %v", err)
	}
	key, err := crypto.KeyFromHex(p.Key)
	if err != nil {
		t.Fatalf("KeyFromHex: %v", err)
	}
	return &wallet{t: t, key: key, topic: p.Topic, peerID: "wallet-peer-id", cipher: crypto.AESCBCHMAC{}}
}

func (w *wallet) open(msg domain.SocketMessage) jsonrpc.Message {
	w.t.Helper()
	m, _, err := envelope.Open(w.cipher, w.key, msg)
	if err != nil {
		w.t.Fatalf("wallet open: %v", err)
	}
	return m
}

func (w *wallet) seal(to string, v any) domain.SocketMessage {
	w.t.Helper()
	msg, err := envelope.Seal(w.cipher, w.key, to, v, true)
	if err != nil {
		w.t.Errorf("wallet seal: %v", err)
	}
	return msg
}

// answer installs a handshake responder on ft. build returns the response
// for the decoded session proposal.
func (w *wallet) answer(ft *fakeTransport, build func(req jsonrpc.Message) jsonrpc.Response) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.onSend = func(msg domain.SocketMessage) {
		if msg.Topic != w.topic {
			return
		}
		req := w.open(msg)
		var sr domain.SessionRequest
		if err := req.DecodeParams(&sr); err != nil {
			w.t.Errorf("session request params: %v", err)
			return
		}
		w.clientID = sr.PeerID
		ft.deliver(w.seal(sr.PeerID, build(req)))
	}
}

func (w *wallet) approve(chainID int64, accounts ...string) func(jsonrpc.Message) jsonrpc.Response {
	return func(req jsonrpc.Message) jsonrpc.Response {
		resp, err := jsonrpc.NewResult(req.ID, domain.SessionResult{
			PeerID:   w.peerID,
			PeerMeta: walletMeta(),
			Approved: true,
			ChainID:  i64(chainID),
			Accounts: accounts,
		})
		if err != nil {
			w.t.Errorf("NewResult: %v", err)
		}
		return resp
	}
}

func reject(message string) func(jsonrpc.Message) jsonrpc.Response {
	return func(req jsonrpc.Message) jsonrpc.Response {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeServerError, message)
	}
}

// counter counts notifications of one name.
type counter struct {
	n    atomic.Int32
	last atomic.Value
}

func count(e *session.Engine, name string) *counter {
	c := &counter{}
	e.On(name, func(ev events.Event) {
		c.last.Store([]byte(ev.Payload))
		c.n.Add(1)
	})
	return c
}

func (c *counter) get() int { return int(c.n.Load()) }

func (c *counter) reason(t *testing.T) string {
	t.Helper()
	b, _ := c.last.Load().([]byte)
	var r domain.Reason
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("decode reason %q: %v", b, err)
	}
	return r.Message
}

func newEngine(t *testing.T, ft *fakeTransport, opts ...session.Option) *session.Engine {
	t.Helper()
	opts = append([]session.Option{
		session.WithTransport(ft),
		session.WithLogger(quietLogger()),
	}, opts...)
	e, err := session.New(session.Config{
		ClientMeta: dappMeta(),
		ChainID:    i64(1),
		Bridge:     "https://bridge.example",
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// connected returns an engine that has completed a handshake.
func connected(t *testing.T, opts ...session.Option) (*session.Engine, *fakeTransport, *wallet) {
	t.Helper()
	ft := &fakeTransport{}
	e := newEngine(t, ft, opts...)
	w := pair(t, e)
	w.answer(ft, w.approve(1, "0xaaa"))
	if _, err := e.Connect(testContext(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return e, ft, w
}

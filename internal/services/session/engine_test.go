package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dappconnect/internal/crypto"
	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/protocol/jsonrpc"
	"dappconnect/internal/protocol/uri"
	"dappconnect/internal/services/session"
	"dappconnect/internal/store"
)

func TestNew_ValidatesMetadata(t *testing.T) {
	cases := map[string]func(*domain.ClientMeta){
		"description": func(m *domain.ClientMeta) { m.Description = "" },
		"name":        func(m *domain.ClientMeta) { m.Name = "" },
		"url":         func(m *domain.ClientMeta) { m.URL = "" },
		"icons":       func(m *domain.ClientMeta) { m.Icons = nil },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			meta := dappMeta()
			mutate(&meta)
			ft := &fakeTransport{}
			_, err := session.New(session.Config{ClientMeta: meta}, session.WithTransport(ft))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
			if ft.opens != 0 {
				t.Fatal("construction touched the transport")
			}
		})
	}
}

func TestURI_RoundTrip(t *testing.T) {
	e := newEngine(t, &fakeTransport{})

	first := e.URI()
	if e.URI() != first {
		t.Fatal("URI changed between reads")
	}
	p, err := uri.Parse(first)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Topic != e.HandshakeTopic() || p.Version != "1" || p.Key != e.Key() {
		t.Fatalf("got %+v", p)
	}
	if p.Bridge != "wss://bridge.example" {
		t.Fatalf("bridge = %q, want wss://bridge.example", p.Bridge)
	}
	if len(e.Key()) != 64 || strings.ToLower(e.Key()) != e.Key() {
		t.Fatalf("key %q is not 32 bytes of lowercase hex", e.Key())
	}
	if e.HandshakeTopic() == e.ClientID() {
		t.Fatal("handshake topic and client id must differ")
	}
}

func TestNew_BridgeSelection(t *testing.T) {
	e, err := session.New(session.Config{
		ClientMeta: dappMeta(),
		Bridges:    []string{"http://only.example"},
	}, session.WithTransport(&fakeTransport{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Bridge() != "ws://only.example" {
		t.Fatalf("Bridge = %q", e.Bridge())
	}

	e, err = session.New(session.Config{ClientMeta: dappMeta()}, session.WithTransport(&fakeTransport{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(e.Bridge(), "wss://") {
		t.Fatalf("default bridge %q not normalised", e.Bridge())
	}
}

func TestNormalizeBridge(t *testing.T) {
	for in, want := range map[string]string{
		"http://a.example":  "ws://a.example",
		"https://a.example": "wss://a.example",
		"wss://a.example":   "wss://a.example",
		"ws://a.example":    "ws://a.example",
	} {
		if got := session.NormalizeBridge(in); got != want {
			t.Fatalf("NormalizeBridge(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnect_Approved(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	connects := count(e, session.EventConnect)
	updates := count(e, session.EventSessionUpdate)
	w := pair(t, e)
	w.answer(ft, w.approve(5, "0xaaa", "0xbbb"))

	st, err := e.Connect(testContext(t))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if st.PeerID != "wallet-peer-id" || st.ChainID == nil || *st.ChainID != 5 || len(st.Accounts) != 2 {
		t.Fatalf("status = %+v", st)
	}
	if st.PeerMeta == nil || st.PeerMeta.Name != "Wallet" {
		t.Fatalf("peer meta = %+v", st.PeerMeta)
	}
	if !e.Connected() || e.State() != domain.StateConnected {
		t.Fatalf("state = %v", e.State())
	}
	if connects.get() != 1 || updates.get() != 0 {
		t.Fatalf("connect fired %d times, update %d", connects.get(), updates.get())
	}

	if len(ft.subs) != 1 || ft.subs[0] != e.ClientID() {
		t.Fatalf("subscriptions = %v", ft.subs)
	}
	sent := ft.sentMessages()
	if len(sent) != 1 || sent[0].Topic != e.HandshakeTopic() || !sent[0].Silent {
		t.Fatalf("handshake envelope = %+v", sent)
	}
	req := w.open(sent[0])
	if req.Method != session.MethodSessionRequest {
		t.Fatalf("method = %q", req.Method)
	}
	var sr domain.SessionRequest
	if err := req.DecodeParams(&sr); err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	if sr.PeerID != e.ClientID() || sr.PeerMeta.Name != "Dapp" || sr.ChainID == nil || *sr.ChainID != 1 {
		t.Fatalf("session request = %+v", sr)
	}
}

func TestConnect_Rejected(t *testing.T) {
	for _, reason := range []string{session.ReasonNotApproved, session.ReasonRejected} {
		t.Run(reason, func(t *testing.T) {
			ft := &fakeTransport{}
			e := newEngine(t, ft)
			connects := count(e, session.EventConnect)
			w := pair(t, e)
			w.answer(ft, reject(reason))

			_, err := e.Connect(testContext(t))
			if !errors.Is(err, domain.ErrSessionRejected) || !errors.Is(err, events.ErrCancelled) {
				t.Fatalf("got %v, want a rejection", err)
			}
			if errors.Is(err, domain.ErrSessionFailed) {
				t.Fatalf("rejection reported as failure: %v", err)
			}
			if e.Connected() || e.State() != domain.StateDisconnected {
				t.Fatalf("state = %v", e.State())
			}
			if connects.get() != 0 {
				t.Fatal("connect fired for a rejection")
			}
			if ft.closeCount() != 1 {
				t.Fatalf("transport closed %d times", ft.closeCount())
			}
		})
	}
}

func TestConnect_NotApprovedResult(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	failed := count(e, session.EventSessionFailed)
	w := pair(t, e)
	w.answer(ft, func(req jsonrpc.Message) jsonrpc.Response {
		resp, _ := jsonrpc.NewResult(req.ID, domain.SessionResult{Approved: false})
		return resp
	})

	_, err := e.Connect(testContext(t))
	if !errors.Is(err, domain.ErrSessionRejected) {
		t.Fatalf("got %v, want ErrSessionRejected", err)
	}
	if failed.get() != 1 || failed.reason(t) != session.ReasonNotApproved {
		t.Fatalf("session_failed fired %d times", failed.get())
	}
}

func TestConnect_Failed(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	w := pair(t, e)
	w.answer(ft, reject("wallet is locked"))

	_, err := e.Connect(testContext(t))
	var sf *domain.SessionFailedError
	if !errors.As(err, &sf) || sf.Message != "wallet is locked" {
		t.Fatalf("got %v, want SessionFailedError", err)
	}
	if errors.Is(err, events.ErrCancelled) {
		t.Fatal("failure reported as cancellation")
	}
	if e.State() != domain.StateDisconnected || ft.closeCount() != 1 {
		t.Fatalf("state=%v closes=%d", e.State(), ft.closeCount())
	}
}

func TestConnect_ApprovalWithoutPeerFails(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	w := pair(t, e)
	w.answer(ft, func(req jsonrpc.Message) jsonrpc.Response {
		resp, _ := jsonrpc.NewResult(req.ID, domain.SessionResult{Approved: true})
		return resp
	})

	_, err := e.Connect(testContext(t))
	if !errors.Is(err, domain.ErrSessionFailed) {
		t.Fatalf("got %v, want ErrSessionFailed", err)
	}
}

func TestConnect_OnlyOnce(t *testing.T) {
	e, ft, _ := connected(t)
	if _, err := e.Connect(testContext(t)); !errors.Is(err, domain.ErrConnectCalled) {
		t.Fatalf("got %v, want ErrConnectCalled", err)
	}
	if len(ft.sentMessages()) != 1 {
		t.Fatal("second Connect sent another proposal")
	}
}

func TestConnect_ContextDeadline(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}
	if e.State() != domain.StatePending {
		t.Fatalf("state = %v, want pending", e.State())
	}
}

func TestConnect_TransportFailure(t *testing.T) {
	ft := &fakeTransport{openErr: errors.New("connection refused")}
	e := newEngine(t, ft)

	if _, err := e.Connect(testContext(t)); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("got %v, want ErrTransport", err)
	}
	if e.State() != domain.StateDisconnected || ft.closeCount() != 1 {
		t.Fatalf("state=%v closes=%d", e.State(), ft.closeCount())
	}
}

func TestSessionUpdate_SecondApproval(t *testing.T) {
	e, ft, w := connected(t)
	connects := count(e, session.EventConnect)
	updates := count(e, session.EventSessionUpdate)

	handshake := w.open(ft.sentMessages()[0])
	resp, err := jsonrpc.NewResult(handshake.ID, domain.SessionResult{
		PeerID:   "someone-else",
		PeerMeta: &domain.ClientMeta{Name: "Impostor"},
		Approved: true,
		ChainID:  i64(137),
		Accounts: []string{"0xccc"},
	})
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	ft.deliver(w.seal(e.ClientID(), resp))

	if updates.get() != 1 || connects.get() != 0 {
		t.Fatalf("update fired %d times, connect %d", updates.get(), connects.get())
	}
	st := e.Status()
	if *st.ChainID != 137 || len(st.Accounts) != 1 || st.Accounts[0] != "0xccc" {
		t.Fatalf("status not updated: %+v", st)
	}
	if st.PeerID != "wallet-peer-id" || st.PeerMeta.Name != "Wallet" {
		t.Fatalf("peer changed by update: %+v", st)
	}
}

func TestSessionUpdate_FromPeerRequest(t *testing.T) {
	e, ft, w := connected(t)
	updates := count(e, session.EventSessionUpdate)
	raw := count(e, session.MethodSessionUpdate)

	req, _ := jsonrpc.NewRequest(99, session.MethodSessionUpdate, []domain.SessionParams{{
		Approved: true,
		ChainID:  i64(10),
		Accounts: []string{"0xddd"},
	}})
	ft.deliver(w.seal(e.ClientID(), req))

	if updates.get() != 1 || raw.get() != 1 {
		t.Fatalf("session_update=%d raw=%d", updates.get(), raw.get())
	}
	if st := e.Status(); *st.ChainID != 10 || st.Accounts[0] != "0xddd" {
		t.Fatalf("status = %+v", st)
	}
}

func TestSessionUpdate_PeerDisconnects(t *testing.T) {
	e, ft, w := connected(t)
	disconnects := count(e, session.EventDisconnect)

	req, _ := jsonrpc.NewRequest(100, session.MethodSessionUpdate, []domain.SessionParams{{}})
	ft.deliver(w.seal(e.ClientID(), req))

	if e.Connected() || disconnects.get() != 1 || ft.closeCount() != 1 {
		t.Fatalf("connected=%v disconnects=%d closes=%d", e.Connected(), disconnects.get(), ft.closeCount())
	}
	if disconnects.reason(t) != session.ReasonPeerDisconnected {
		t.Fatalf("reason = %q", disconnects.reason(t))
	}
	before := len(ft.sentMessages())
	if err := e.Disconnect(testContext(t), ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(ft.sentMessages()) != before || disconnects.get() != 1 {
		t.Fatal("Disconnect after peer disconnect had effects")
	}
}

func TestDisconnect(t *testing.T) {
	e, ft, w := connected(t)
	disconnects := count(e, session.EventDisconnect)

	if err := e.Disconnect(testContext(t), "bye"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if e.Connected() || disconnects.get() != 1 || ft.closeCount() != 1 {
		t.Fatalf("connected=%v disconnects=%d closes=%d", e.Connected(), disconnects.get(), ft.closeCount())
	}
	if disconnects.reason(t) != "bye" {
		t.Fatalf("reason = %q", disconnects.reason(t))
	}

	sent := ft.sentMessages()
	kill := sent[len(sent)-1]
	if kill.Topic != "wallet-peer-id" {
		t.Fatalf("disconnect notice sent to %q", kill.Topic)
	}
	req := w.open(kill)
	var p map[string]any
	if req.Method != session.MethodSessionUpdate || req.DecodeParams(&p) != nil {
		t.Fatalf("disconnect notice = %+v", req)
	}
	if p["approved"] != false || p["chainId"] != nil || p["accounts"] != nil || p["networkId"] != nil {
		t.Fatalf("disconnect params not cleared: %v", p)
	}

	if err := e.Disconnect(testContext(t), "again"); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if disconnects.get() != 1 || ft.closeCount() != 1 || len(ft.sentMessages()) != len(sent) {
		t.Fatal("second Disconnect had effects")
	}
	if err := e.SendRequest(testContext(t), jsonrpc.Request{Method: "eth_chainId"}); !errors.Is(err, domain.ErrDisconnected) {
		t.Fatalf("SendRequest after disconnect: %v", err)
	}
}

func TestDisconnect_BeforeConnect(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	disconnects := count(e, session.EventDisconnect)

	if err := e.Disconnect(testContext(t), ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(ft.sentMessages()) != 0 {
		t.Fatal("notice sent without a peer")
	}
	if disconnects.get() != 1 || ft.closeCount() != 1 || e.State() != domain.StateDisconnected {
		t.Fatalf("disconnects=%d closes=%d state=%v", disconnects.get(), ft.closeCount(), e.State())
	}
	if disconnects.reason(t) != session.ReasonDisconnected {
		t.Fatalf("reason = %q", disconnects.reason(t))
	}
	if _, err := e.Connect(testContext(t)); !errors.Is(err, domain.ErrConnectCalled) {
		t.Fatalf("Connect after Disconnect: %v", err)
	}
}

// countingCipher counts Decrypt calls.
type countingCipher struct {
	domain.Cipher
	decrypts int
}

func (c *countingCipher) Decrypt(key []byte, p domain.EncryptionPayload) ([]byte, error) {
	c.decrypts++
	return c.Cipher.Decrypt(key, p)
}

func TestInbound_ForeignTopicIgnored(t *testing.T) {
	cc := &countingCipher{Cipher: crypto.AESCBCHMAC{}}
	e, ft, w := connected(t, session.WithCipher(cc))
	before := cc.decrypts
	updates := count(e, session.EventSessionUpdate)

	handshake := w.open(ft.sentMessages()[0])
	resp, _ := jsonrpc.NewResult(handshake.ID, domain.SessionResult{PeerID: "x", Approved: true, ChainID: i64(9)})
	ft.deliver(w.seal("somebody-else", resp))

	if cc.decrypts != before {
		t.Fatal("message for a foreign topic was decrypted")
	}
	if updates.get() != 0 || *e.Status().ChainID == 9 {
		t.Fatal("message for a foreign topic changed the session")
	}
}

func TestInbound_UndecryptableDropped(t *testing.T) {
	e, ft, _ := connected(t)
	updates := count(e, session.EventSessionUpdate)

	ft.deliver(domain.SocketMessage{Topic: e.ClientID(), Type: domain.MessagePub, Payload: "not json"})
	ft.deliver(domain.SocketMessage{Topic: e.ClientID(), Type: domain.MessagePub, Payload: `{"data":"00","hmac":"00","iv":"00"}`})

	if !e.Connected() || updates.get() != 0 {
		t.Fatal("bad inbound message affected the session")
	}
}

func TestSendRequest_SilentDefaults(t *testing.T) {
	e, ft, w := connected(t)
	ctx := testContext(t)

	cases := []struct {
		method string
		opts   []session.SendOption
		silent bool
	}{
		{"eth_sendTransaction", nil, false},
		{"personal_sign", nil, false},
		{"eth_chainId", nil, true},
		{session.MethodSessionUpdate, nil, true},
		{"eth_sendTransaction", []session.SendOption{session.Silent(true)}, true},
		{"eth_chainId", []session.SendOption{session.Silent(false)}, false},
	}
	for _, tc := range cases {
		req, _ := jsonrpc.NewRequest(1, tc.method, nil)
		if err := e.SendRequest(ctx, req, tc.opts...); err != nil {
			t.Fatalf("SendRequest(%s): %v", tc.method, err)
		}
		sent := ft.sentMessages()
		msg := sent[len(sent)-1]
		if msg.Silent != tc.silent || msg.Topic != "wallet-peer-id" {
			t.Fatalf("%s: silent=%v topic=%q", tc.method, msg.Silent, msg.Topic)
		}
		if got := w.open(msg); got.Method != tc.method {
			t.Fatalf("decrypted method %q, want %q", got.Method, tc.method)
		}
	}
}

func TestSendRequest_CustomSigningMethods(t *testing.T) {
	e, ft, _ := connected(t, session.WithSigningMethods("custom_sign"))
	req, _ := jsonrpc.NewRequest(1, "custom_sign", nil)
	if err := e.SendRequest(testContext(t), req); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	sent := ft.sentMessages()
	if sent[len(sent)-1].Silent {
		t.Fatal("configured signing method sent silent")
	}
}

func TestSendRequest_NoPeer(t *testing.T) {
	e := newEngine(t, &fakeTransport{})
	req, _ := jsonrpc.NewRequest(1, "eth_accounts", nil)
	if err := e.SendRequest(testContext(t), req); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestRequest_Correlated(t *testing.T) {
	e, ft, w := connected(t)

	ft.mu.Lock()
	ft.onSend = func(msg domain.SocketMessage) {
		req := w.open(msg)
		var resp jsonrpc.Response
		switch req.Method {
		case "eth_chainId":
			resp, _ = jsonrpc.NewResult(req.ID, "0x1")
		default:
			resp = jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "unsupported")
		}
		ft.deliver(w.seal(e.ClientID(), resp))
	}
	ft.mu.Unlock()

	got, err := e.Request(testContext(t), "eth_chainId", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	var chain string
	if err := json.Unmarshal(got, &chain); err != nil || chain != "0x1" {
		t.Fatalf("result = %s", got)
	}

	_, err = e.Request(testContext(t), "eth_mine", nil)
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != jsonrpc.CodeMethodNotFound {
		t.Fatalf("got %v, want method-not-found", err)
	}
}

func TestRequest_EndsOnDisconnect(t *testing.T) {
	e, ft, _ := connected(t)

	sent := make(chan struct{}, 1)
	ft.mu.Lock()
	ft.onSend = func(domain.SocketMessage) {
		select {
		case sent <- struct{}{}:
		default:
		}
	}
	ft.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		_, err := e.Request(testContext(t), "eth_sign", []string{"0x0", "0x0"})
		errc <- err
	}()

	<-sent
	if err := e.Disconnect(testContext(t), ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, events.ErrCancelled) {
			t.Fatalf("got %v, want cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Request still waiting after Disconnect")
	}
}

func TestPersistence_RestoreAndForget(t *testing.T) {
	ctx := testContext(t)
	st := store.NewFileSessionStore(t.TempDir(), "")
	e, _, _ := connected(t, session.WithStore(st))

	stored, ok, err := st.LoadSession(ctx, e.ClientID())
	if err != nil || !ok {
		t.Fatalf("LoadSession: ok=%v err=%v", ok, err)
	}
	if stored.Key != e.Key() || stored.PeerID != "wallet-peer-id" || !stored.Connected {
		t.Fatalf("stored = %+v", stored)
	}
	_ = e.Close()

	ft := &fakeTransport{}
	restored, err := session.Restore(stored,
		session.WithTransport(ft),
		session.WithStore(st),
		session.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Connected() || restored.URI() != e.URI() || restored.Status().PeerMeta.Name != "Wallet" {
		t.Fatalf("restored session differs: %+v", restored.Status())
	}
	if err := restored.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if ft.opens != 1 || len(ft.subs) != 1 || ft.subs[0] != e.ClientID() {
		t.Fatalf("opens=%d subs=%v", ft.opens, ft.subs)
	}

	if err := restored.Disconnect(ctx, ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, ok, _ := st.LoadSession(ctx, e.ClientID()); ok {
		t.Fatal("session still stored after disconnect")
	}
}

func TestRestore_RequiresConnectedSession(t *testing.T) {
	_, err := session.Restore(domain.StoredSession{ClientID: "x", ClientMeta: dappMeta()})
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

// waitConnect runs Connect in the background and returns its result channel.
func waitConnect(t *testing.T, e *session.Engine) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		_, err := e.Connect(testContext(t))
		errc <- err
	}()
	return errc
}

func connectResult(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(time.Second):
		t.Fatal("Connect still waiting")
		return nil
	}
}

func TestConnect_DisconnectWhilePending(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	proposed := make(chan struct{})
	ft.onSend = func(domain.SocketMessage) { close(proposed) }

	errc := waitConnect(t, e)
	<-proposed
	if err := e.Disconnect(testContext(t), ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	err := connectResult(t, errc)
	if !errors.Is(err, domain.ErrDisconnected) {
		t.Fatalf("got %v, want ErrDisconnected", err)
	}
	if e.State() != domain.StateDisconnected || len(ft.sentMessages()) != 1 {
		t.Fatalf("state=%v sent=%d", e.State(), len(ft.sentMessages()))
	}
}

func TestConnect_PeerDisconnectWhilePending(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	disconnects := count(e, session.EventDisconnect)
	w := pair(t, e)
	ft.onSend = func(msg domain.SocketMessage) {
		if msg.Topic != w.topic {
			return
		}
		kill, _ := jsonrpc.NewRequest(7, session.MethodSessionUpdate, []domain.SessionParams{{}})
		ft.deliver(w.seal(e.ClientID(), kill))
	}

	err := connectResult(t, waitConnect(t, e))
	if !errors.Is(err, domain.ErrDisconnected) {
		t.Fatalf("got %v, want ErrDisconnected", err)
	}
	if disconnects.get() != 1 || disconnects.reason(t) != session.ReasonPeerDisconnected {
		t.Fatalf("disconnects=%d", disconnects.get())
	}
	if e.State() != domain.StateDisconnected || ft.closeCount() != 1 {
		t.Fatalf("state=%v closes=%d", e.State(), ft.closeCount())
	}
}

func TestConnect_EmptyResultNotApproved(t *testing.T) {
	ft := &fakeTransport{}
	e := newEngine(t, ft)
	failed := count(e, session.EventSessionFailed)
	w := pair(t, e)
	w.answer(ft, func(req jsonrpc.Message) jsonrpc.Response {
		return jsonrpc.Response{ID: req.ID, JSONRPC: jsonrpc.Version}
	})

	err := connectResult(t, waitConnect(t, e))
	if !errors.Is(err, domain.ErrSessionRejected) {
		t.Fatalf("got %v, want ErrSessionRejected", err)
	}
	if failed.get() != 1 || failed.reason(t) != session.ReasonNotApproved {
		t.Fatalf("session_failed fired %d times", failed.get())
	}
	if e.State() != domain.StateDisconnected {
		t.Fatalf("state = %v", e.State())
	}
}

// A session that fired connect must have told the peer when it is
// disconnected, however the approval and the Disconnect interleave.
func TestDisconnect_RacingApproval(t *testing.T) {
	for i := 0; i < 50; i++ {
		ft := &fakeTransport{}
		e := newEngine(t, ft)
		connects := count(e, session.EventConnect)
		w := pair(t, e)
		raced := make(chan struct{})
		ft.onSend = func(msg domain.SocketMessage) {
			if msg.Topic != w.topic {
				return
			}
			resp := w.approve(1, "0xaaa")(w.open(msg))
			go ft.deliver(w.seal(e.ClientID(), resp))
			_ = e.Disconnect(context.Background(), "")
			close(raced)
		}

		_ = connectResult(t, waitConnect(t, e))
		<-raced

		if connects.get() == 0 {
			continue
		}
		notified := false
		for _, m := range ft.sentMessages() {
			if m.Topic == "wallet-peer-id" {
				notified = true
			}
		}
		if !notified {
			t.Fatalf("iteration %d: connect fired but the peer was never told about the disconnect", i)
		}
	}
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/protocol/jsonrpc"
)

// Connect opens the bridge, subscribes to the client topic and proposes the
// session on the handshake topic, then waits for the wallet's answer.
//
// It returns the approved session data, an error matching
// domain.ErrSessionRejected when the user declines, a *domain.SessionFailedError
// for any other wallet-side failure, an error matching domain.ErrDisconnected
// when the session is disconnected locally or by the peer before approval, a
// domain.ErrTransport error when the bridge can't be reached, or ctx.Err() if
// ctx ends first. In the last case the session stays pending and a late
// approval still connects it.
func (e *Engine) Connect(ctx context.Context) (domain.SessionStatus, error) {
	e.mu.Lock()
	if e.connectCalled || e.state != domain.StatePending {
		e.mu.Unlock()
		return domain.SessionStatus{}, domain.ErrConnectCalled
	}
	e.connectCalled = true
	e.handshakeID = e.ids.Next()
	id := e.handshakeID
	chainID := cloneInt(e.chainID)
	e.mu.Unlock()

	ctx = e.logContext(ctx)
	done := events.NewCompletion[domain.SessionStatus]()

	offConnect := e.events.On(EventConnect, func(ev events.Event) {
		var st domain.SessionStatus
		if err := json.Unmarshal(ev.Payload, &st); err != nil {
			done.Fail(fmt.Errorf("%w: connect payload: %v", domain.ErrProtocol, err))
			return
		}
		done.Resolve(st)
	})
	defer offConnect()

	offFailed := e.events.On(EventSessionFailed, func(ev events.Event) {
		var r domain.Reason
		_ = json.Unmarshal(ev.Payload, &r)
		if isRejection(r.Message) {
			done.Cancel(r.Message)
			return
		}
		done.Fail(&domain.SessionFailedError{Message: r.Message})
	})
	defer offFailed()

	// Disconnect or a peer kill while pending ends the proposal too.
	offDisconnect := e.events.On(EventDisconnect, func(ev events.Event) {
		var r domain.Reason
		_ = json.Unmarshal(ev.Payload, &r)
		done.Fail(fmt.Errorf("%w: %s", domain.ErrDisconnected, r.Message))
	})
	defer offDisconnect()

	e.events.Track(id, e.handleSessionResponse)

	if err := e.open(ctx); err != nil {
		e.abort(ctx, err)
		return domain.SessionStatus{}, err
	}

	req, err := jsonrpc.NewRequest(id, MethodSessionRequest, []domain.SessionRequest{{
		PeerID:   e.clientID,
		PeerMeta: e.clientMeta,
		ChainID:  chainID,
	}})
	if err != nil {
		e.abort(ctx, err)
		return domain.SessionStatus{}, err
	}
	if err := e.SendRequest(ctx, req, ToTopic(e.handshakeTopic)); err != nil {
		e.abort(ctx, err)
		return domain.SessionStatus{}, err
	}
	e.logger.DebugContext(ctx, "session proposed", "handshake_id", id)

	st, err := done.Wait(ctx)
	if errors.Is(err, events.ErrCancelled) {
		return domain.SessionStatus{}, fmt.Errorf("%w: %w", domain.ErrSessionRejected, err)
	}
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return st, nil
}

// Resume reattaches a restored session to the bridge.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	state, opened := e.state, e.opened
	e.mu.Unlock()

	if state != domain.StateConnected {
		return domain.ErrNotConnected
	}
	if opened {
		return nil
	}
	ctx = e.logContext(ctx)
	if err := e.open(ctx); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "session resumed")
	return nil
}

func (e *Engine) open(ctx context.Context) error {
	e.mu.Lock()
	e.opened = true
	e.mu.Unlock()

	if err := e.transport.Open(ctx, e.bridge); err != nil {
		return transportError("open bridge", err)
	}
	if err := e.transport.Subscribe(ctx, e.clientID); err != nil {
		return transportError("subscribe", err)
	}
	return nil
}

// handleSessionResponse answers every response correlated with the
// handshake id: the first approval connects, later ones update.
func (e *Engine) handleSessionResponse(ev events.Event) {
	ctx := e.logContext(context.Background())

	msg, err := jsonrpc.Decode(ev.Payload)
	if err != nil {
		e.failSession(ctx, err.Error())
		return
	}
	if msg.Error != nil {
		e.failSession(ctx, msg.Error.Message)
		return
	}

	var res domain.SessionResult
	if len(msg.Result) > 0 {
		if err := json.Unmarshal(msg.Result, &res); err != nil {
			e.failSession(ctx, fmt.Sprintf("malformed session result: %v", err))
			return
		}
	}
	if !res.Approved {
		e.failSession(ctx, ReasonNotApproved)
		return
	}
	if err := e.approve(ctx, res); err != nil {
		e.failSession(ctx, err.Error())
	}
}

// approve applies an approved result. The state, not a remembered flag,
// decides whether this is the first approval.
func (e *Engine) approve(ctx context.Context, res domain.SessionResult) error {
	e.mu.Lock()
	switch e.state {
	case domain.StateDisconnected:
		e.mu.Unlock()
		return nil
	case domain.StatePending:
		if res.PeerID == "" {
			e.mu.Unlock()
			return errors.New("approved session has no peerId")
		}
		e.peerID = res.PeerID
		if res.PeerMeta != nil {
			m := res.PeerMeta.Clone()
			e.peerMeta = &m
		}
	}
	first := e.state == domain.StatePending
	e.state = domain.StateConnected
	if res.ChainID != nil {
		e.chainID = cloneInt(res.ChainID)
	}
	if res.Accounts != nil {
		e.accounts = append([]string(nil), res.Accounts...)
	}
	status := e.statusLocked()
	stored := e.storedLocked()
	e.mu.Unlock()

	e.persist(ctx, stored)
	if first {
		e.logger.InfoContext(ctx, "session connected", "peer_id", status.PeerID, "accounts", len(status.Accounts))
		e.emit(EventConnect, status)
		return nil
	}
	e.logger.DebugContext(ctx, "session updated", "accounts", len(status.Accounts))
	e.emit(EventSessionUpdate, status)
	return nil
}

// failSession ends the session after a rejected or failed proposal.
func (e *Engine) failSession(ctx context.Context, message string) {
	if !e.terminate() {
		return
	}
	e.logger.WarnContext(ctx, "session failed", "reason", message)
	e.emit(EventSessionFailed, domain.Reason{Message: message})
	e.closeTransport(ctx)
	e.forget(ctx)
}

// abort ends a session whose proposal never reached the bridge.
func (e *Engine) abort(ctx context.Context, err error) {
	e.logger.WarnContext(ctx, "connect aborted", "error", err)
	if e.terminate() {
		e.closeTransport(ctx)
	}
}

func transportError(op string, err error) error {
	if errors.Is(err, domain.ErrTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
}

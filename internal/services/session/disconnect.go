package session

import (
	"context"

	"dappconnect/internal/domain"
	"dappconnect/internal/protocol/jsonrpc"
)

// Disconnect tells the peer the session is over, fires disconnect and closes
// the transport. Calling it on a disconnected session does nothing. The
// session ends even when the notice can't be sent; that send error is
// returned.
func (e *Engine) Disconnect(ctx context.Context, reason string) error {
	if reason == "" {
		reason = ReasonDisconnected
	}
	ctx = e.logContext(ctx)

	// Leave the state and read the peer under one lock; a later approval
	// finds the session disconnected.
	e.mu.Lock()
	if e.state == domain.StateDisconnected {
		e.mu.Unlock()
		return nil
	}
	e.state = domain.StateDisconnected
	peer := e.peerID
	notify := peer != "" && e.opened && !e.closed
	e.mu.Unlock()

	var sendErr error
	if notify {
		req, err := jsonrpc.NewRequest(e.ids.Next(), MethodSessionUpdate, []domain.SessionParams{{}})
		if err == nil {
			err = e.send(ctx, peer, req, sendOptions{})
		}
		if err != nil {
			e.logger.WarnContext(ctx, "disconnect notice not sent", "error", err)
			sendErr = err
		}
	}

	e.logger.InfoContext(ctx, "session disconnected", "reason", reason)
	e.emit(EventDisconnect, domain.Reason{Message: reason})
	e.closeTransport(ctx)
	e.forget(ctx)
	return sendErr
}

// Close releases the transport but keeps the session connected and stored,
// so a later process can Restore it.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	return e.transport.Close()
}

func (e *Engine) peerDisconnected(ctx context.Context) {
	if !e.terminate() {
		return
	}
	e.logger.InfoContext(ctx, "session disconnected", "reason", ReasonPeerDisconnected)
	e.emit(EventDisconnect, domain.Reason{Message: ReasonPeerDisconnected})
	e.closeTransport(ctx)
	e.forget(ctx)
}

// terminate moves to the disconnected state and reports whether this call
// made the transition.
func (e *Engine) terminate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == domain.StateDisconnected {
		return false
	}
	e.state = domain.StateDisconnected
	return true
}

func (e *Engine) closeTransport(ctx context.Context) {
	if err := e.Close(); err != nil {
		e.logger.WarnContext(ctx, "close transport", "error", err)
	}
}

func (e *Engine) persist(ctx context.Context, s domain.StoredSession) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSession(ctx, s); err != nil {
		e.logger.WarnContext(ctx, "save session", "error", err)
	}
}

func (e *Engine) forget(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.DeleteSession(ctx, e.clientID); err != nil {
		e.logger.WarnContext(ctx, "delete session", "error", err)
	}
}

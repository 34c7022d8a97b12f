package session

import (
	"context"
	"encoding/json"

	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/protocol/envelope"
	"dappconnect/internal/protocol/jsonrpc"
)

// handleMessage is the transport callback. Only the client and handshake
// topics are ours; anything else is ignored before decryption.
func (e *Engine) handleMessage(msg domain.SocketMessage) {
	if msg.Topic != e.clientID && msg.Topic != e.handshakeTopic {
		return
	}
	ctx := e.logContext(context.Background())

	rpc, raw, err := envelope.Open(e.cipher, e.key, msg)
	if err != nil {
		e.logger.WarnContext(ctx, "dropping inbound message", "topic", msg.Topic, "error", err)
		return
	}

	if rpc.IsRequest() {
		e.handleRequest(ctx, rpc, raw)
		return
	}
	if !e.events.Resolve(events.Event{Name: "response", ID: rpc.ID, Payload: raw}) {
		e.logger.DebugContext(ctx, "uncorrelated response", "id", rpc.ID)
	}
}

func (e *Engine) handleRequest(ctx context.Context, rpc jsonrpc.Message, raw json.RawMessage) {
	if rpc.Method == MethodSessionUpdate {
		var p domain.SessionParams
		if err := rpc.DecodeParams(&p); err != nil {
			e.logger.WarnContext(ctx, "dropping session update", "error", err)
			return
		}
		if p.Approved {
			err := e.approve(ctx, domain.SessionResult{
				Approved:  true,
				ChainID:   p.ChainID,
				NetworkID: p.NetworkID,
				Accounts:  p.Accounts,
				RPCURL:    p.RPCURL,
			})
			if err != nil {
				e.logger.DebugContext(ctx, "ignoring session update before approval", "error", err)
			}
		} else {
			e.peerDisconnected(ctx)
		}
	}
	e.events.Emit(events.Event{Name: rpc.Method, ID: rpc.ID, Payload: raw})
}

package session

import (
	"context"
	"encoding/json"
	"fmt"

	"dappconnect/internal/domain"
	"dappconnect/internal/events"
	"dappconnect/internal/protocol/envelope"
	"dappconnect/internal/protocol/jsonrpc"
)

// SendOption adjusts a single SendRequest.
type SendOption func(*sendOptions)

type sendOptions struct {
	topic  string
	silent *bool
}

// ToTopic addresses the request to topic instead of the peer.
func ToTopic(topic string) SendOption { return func(o *sendOptions) { o.topic = topic } }

// Silent overrides the default push-notification hint.
func Silent(silent bool) SendOption { return func(o *sendOptions) { o.silent = &silent } }

// SendRequest encrypts req and publishes it, by default to the peer topic.
// It returns once the transport accepts the message; responses arrive
// through Request or a correlated listener.
//
// Unless overridden, signing methods are sent non-silent and everything else,
// protocol methods included, silent.
func (e *Engine) SendRequest(ctx context.Context, req jsonrpc.Request, opts ...SendOption) error {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	state, topic := e.state, o.topic
	if topic == "" {
		topic = e.peerID
	}
	e.mu.Unlock()

	if state == domain.StateDisconnected {
		return domain.ErrDisconnected
	}
	if topic == "" {
		return domain.ErrNotConnected
	}

	return e.send(ctx, topic, req, o)
}

// send seals req for topic and hands it to the transport without looking at
// the session state.
func (e *Engine) send(ctx context.Context, topic string, req jsonrpc.Request, o sendOptions) error {
	silent := e.silentFor(req.Method)
	if o.silent != nil {
		silent = *o.silent
	}

	msg, err := envelope.Seal(e.cipher, e.key, topic, req, silent)
	if err != nil {
		return err
	}
	if err := e.transport.Send(ctx, msg); err != nil {
		return transportError("send "+req.Method, err)
	}
	return nil
}

// Request sends method to the peer and waits for the correlated response.
// A JSON-RPC error reply is returned as *jsonrpc.Error. The wait ends early
// if the session disconnects or fails.
func (e *Engine) Request(ctx context.Context, method string, params any, opts ...SendOption) (json.RawMessage, error) {
	req, err := jsonrpc.NewRequest(e.ids.Next(), method, params)
	if err != nil {
		return nil, err
	}
	ctx = e.logContext(ctx)

	done := events.NewCompletion[jsonrpc.Message]()
	offResponse := e.events.Once(req.ID, func(ev events.Event) {
		msg, err := jsonrpc.Decode(ev.Payload)
		if err != nil {
			done.Fail(err)
			return
		}
		done.Resolve(msg)
	})
	defer offResponse()
	offDisconnect := e.events.On(EventDisconnect, func(events.Event) { done.Cancel(ReasonDisconnected) })
	defer offDisconnect()
	offFailed := e.events.On(EventSessionFailed, func(events.Event) { done.Fail(domain.ErrSessionFailed) })
	defer offFailed()

	if err := e.SendRequest(ctx, req, opts...); err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "request sent", "method", method, "id", req.ID)

	msg, err := done.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if msg.Error != nil {
		return nil, msg.Error
	}
	return msg.Result, nil
}

func (e *Engine) silentFor(method string) bool {
	if isInternal(method) {
		return true
	}
	_, signing := e.signing[method]
	return !signing
}

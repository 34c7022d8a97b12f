package jsonrpc

import (
	"encoding/json"
	"fmt"

	"dappconnect/internal/domain"
)

// Version is the JSON-RPC protocol version carried by every message.
const Version = "2.0"

// Request is a JSON-RPC request. Params is always a JSON array.
type Request struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC response carrying either Result or Error.
type Response struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Message is any decoded plaintext: a request when Method is set, a response
// otherwise.
type Message struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest reports whether m names a method.
func (m Message) IsRequest() bool { return m.Method != "" }

// NewRequest builds a request; nil params encode as an empty array.
func NewRequest(id int64, method string, params any) (Request, error) {
	raw := json.RawMessage(`[]`)
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = b
	}
	return Request{ID: id, JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResult builds a successful response.
func NewResult(id int64, result any) (Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("marshal result: %w", err)
	}
	return Response{ID: id, JSONRPC: Version, Result: b}, nil
}

// NewError builds an error response.
func NewError(id int64, code int, message string) Response {
	return Response{ID: id, JSONRPC: Version, Error: &Error{Code: code, Message: message}}
}

// Decode parses plaintext into a Message. Every message needs an id; one
// without a method is a response even when it carries neither result nor
// error, and Result is then empty.
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	if m.ID == 0 {
		return Message{}, fmt.Errorf("%w: message has no id", domain.ErrProtocol)
	}
	return m, nil
}

// DecodeParams unmarshals the first params entry of a request into out.
func (m Message) DecodeParams(out any) error {
	var params []json.RawMessage
	if err := json.Unmarshal(m.Params, &params); err != nil {
		return fmt.Errorf("%w: %s params: %v", domain.ErrProtocol, m.Method, err)
	}
	if len(params) == 0 {
		return fmt.Errorf("%w: %s params are empty", domain.ErrProtocol, m.Method)
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return fmt.Errorf("%w: %s params: %v", domain.ErrProtocol, m.Method, err)
	}
	return nil
}

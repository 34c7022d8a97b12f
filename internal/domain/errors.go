package domain

import "errors"

var (
	ErrValidation      = errors.New("invalid client metadata")
	ErrSessionRejected = errors.New("session rejected")
	ErrSessionFailed   = errors.New("session failed")
	ErrTransport       = errors.New("transport error")
	ErrCipher          = errors.New("cipher error")
	ErrProtocol        = errors.New("protocol error")
	ErrNotConnected    = errors.New("no peer topic to send to")
	ErrConnectCalled   = errors.New("connect already called on this session")
	ErrDisconnected    = errors.New("session disconnected")
)

// ValidationError names the client metadata field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "client metadata: missing " + e.Field
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SessionFailedError carries the message a wallet returned with a failed
// session proposal.
type SessionFailedError struct {
	Message string
}

func (e *SessionFailedError) Error() string {
	return "session failed: " + e.Message
}

func (e *SessionFailedError) Is(target error) bool { return target == ErrSessionFailed }

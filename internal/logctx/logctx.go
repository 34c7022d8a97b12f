// Package logctx builds the slog logger and carries per-session attributes in
// a context so every record logged with that context is tagged.
package logctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Handler adds context-carried attributes to each record.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("session",
			slog.String("client_id", sd.ClientID),
			slog.String("handshake_topic", sd.HandshakeTopic),
			slog.String("bridge", sd.Bridge),
		))
	}

	if cd, ok := ctx.Value(commandDataKey{}).(*CommandData); ok {
		r.AddAttrs(slog.Group("cmd",
			slog.String("name", cd.Name),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{h.Handler.WithGroup(name)}
}

type sessionDataKey struct{}

// SessionData identifies the session a record belongs to.
type SessionData struct {
	ClientID       string
	HandshakeTopic string
	Bridge         string
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

type commandDataKey struct{}

// CommandData names the CLI command that produced a record.
type CommandData struct {
	Name string
}

func WithCommandData(ctx context.Context, data *CommandData) context.Context {
	return context.WithValue(ctx, commandDataKey{}, data)
}

// New returns a logger writing to w. format is "text" or "json"; level is any
// name slog.Level understands ("debug", "info", "warn", "error").
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(Handler{h}), nil
}

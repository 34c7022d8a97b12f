package app

import (
	"context"
	"fmt"
	"log/slog"

	"dappconnect/internal/domain"
	"dappconnect/internal/services/session"
)

// App bundles what commands need to run sessions.
type App struct {
	Config Config
	Logger *slog.Logger
	Store  domain.SessionStore
	Cipher domain.Cipher

	// Transport, when set, is used for every session instead of a new
	// websocket client.
	Transport domain.Transport

	closers []func() error
}

func (a *App) options() []session.Option {
	opts := []session.Option{
		session.WithCipher(a.Cipher),
		session.WithStore(a.Store),
		session.WithLogger(a.Logger),
	}
	if len(a.Config.Client.SigningMethods) > 0 {
		opts = append(opts, session.WithSigningMethods(a.Config.Client.SigningMethods...))
	}
	if a.Transport != nil {
		opts = append(opts, session.WithTransport(a.Transport))
	}
	return opts
}

// NewSession prepares a pending session from the client config.
func (a *App) NewSession() (*session.Engine, error) {
	c := a.Config.Client
	return session.New(session.Config{
		ClientMeta: c.Meta,
		ChainID:    c.ChainID,
		Bridge:     c.Bridge,
		Bridges:    c.Bridges,
	}, a.options()...)
}

// RestoreSession loads the stored session for clientID and reattaches it to
// its bridge.
func (a *App) RestoreSession(ctx context.Context, clientID string) (*session.Engine, error) {
	stored, ok, err := a.Store.LoadSession(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", clientID, domain.ErrNotConnected)
	}
	e, err := session.Restore(stored, a.options()...)
	if err != nil {
		return nil, err
	}
	if err := e.Resume(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases connections opened by Wire.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

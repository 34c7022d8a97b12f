package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"dappconnect/internal/crypto"
	"dappconnect/internal/domain"
	"dappconnect/internal/logctx"
	"dappconnect/internal/relay"
	"dappconnect/internal/store"
)

// Wire constructs the dependency graph from cfg. Logs go to logOut.
func Wire(ctx context.Context, cfg Config, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.ByName(cfg.Client.Cipher)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Cipher: cipher}

	// Redis when configured, otherwise the file store under Dir.
	if cfg.Store.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.Store.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.Store = store.NewRedisSessionStore(rdb, cfg.Store.KeyPrefix, time.Duration(cfg.Store.TTL))
		logger.Debug("using redis session store", "addr", cfg.Store.RedisAddr)
	} else {
		if err := os.MkdirAll(cfg.Store.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("store dir: %w", err)
		}
		a.Store = store.NewFileSessionStore(cfg.Store.Dir, cfg.Store.Passphrase)
		logger.Debug("using file session store", "dir", cfg.Store.Dir)
	}
	return a, nil
}

// Bridge is a wired development bridge.
type Bridge struct {
	Hub    *relay.Hub
	Logger *slog.Logger
	Addr   string
	close  func() error
}

func (b *Bridge) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// WireHub builds a bridge hub whose pending-message queue lives in redis when
// configured and in memory otherwise.
func WireHub(ctx context.Context, cfg Config, logOut io.Writer) (*Bridge, error) {
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	b := &Bridge{Logger: logger, Addr: cfg.Bridge.ListenAddr}

	var queue domain.MessageQueue
	if cfg.Bridge.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.Bridge.RedisAddr)
		if err != nil {
			return nil, err
		}
		b.close = rdb.Close
		queue = store.NewRedisQueue(rdb, cfg.Bridge.KeyPrefix)
	} else {
		queue = store.NewMemoryQueue()
	}
	b.Hub = relay.NewHub(queue, time.Duration(cfg.Bridge.MessageTTL), logger)
	return b, nil
}

func newLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	return logctx.New(w, cfg.Level, cfg.Format)
}

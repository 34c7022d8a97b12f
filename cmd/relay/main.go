package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dappconnect/internal/app"
)

var (
	configPath string
	listenAddr string
	redisAddr  string
	messageTTL time.Duration
)

func main() {
	root := &cobra.Command{
		Use:          "relay",
		Short:        "Run the development websocket bridge",
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().StringVar(&configPath, "config", "", "config file (JSONC)")
	root.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	root.Flags().StringVar(&redisAddr, "redis", "", "redis address for the pending queue")
	root.Flags().DurationVar(&messageTTL, "ttl", 0, "how long undelivered messages are kept")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := app.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Bridge.ListenAddr = listenAddr
	}
	if redisAddr != "" {
		cfg.Bridge.RedisAddr = redisAddr
	}
	if messageTTL > 0 {
		cfg.Bridge.MessageTTL = app.Duration(messageTTL)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge, err := app.WireHub(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer bridge.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", bridge.Hub)

	srv := &http.Server{
		Addr:              bridge.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		bridge.Logger.Info("bridge listening", "addr", bridge.Addr, "ttl", time.Duration(cfg.Bridge.MessageTTL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	bridge.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

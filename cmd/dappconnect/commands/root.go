package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dappconnect/internal/app"
	"dappconnect/internal/logctx"
)

var (
	configPath string
	logLevel   string
	timeout    time.Duration
	appCtx     *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:           "dappconnect",
		Short:         "Connect a dapp to a mobile wallet over a bridge",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			cfg, err := app.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			a, err := app.Wire(cmd.Context(), cfg, os.Stderr)
			if err != nil {
				return err
			}
			appCtx = a
			cmd.SetContext(logctx.WithCommandData(cmd.Context(), &logctx.CommandData{Name: cmd.Name()}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.dappconnect/config.jsonc if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the wallet")

	root.AddCommand(connectCmd(), requestCmd(), disconnectCmd(), sessionsCmd(), parseURICmd())
	return root.ExecuteContext(context.Background())
}

// resolveConfigPath returns --config, or the default file when it exists.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".dappconnect", "config.jsonc")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

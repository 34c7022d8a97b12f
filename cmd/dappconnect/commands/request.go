package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dappconnect/internal/services/session"
)

var silent string

// request <client-id> <method> [params]: call the wallet over a stored session.
func requestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <client-id> <method> [params-json]",
		Short: "Send a JSON-RPC request to the wallet and print the result",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 3 {
				var raw json.RawMessage
				if err := json.Unmarshal([]byte(args[2]), &raw); err != nil {
					return fmt.Errorf("params must be JSON: %w", err)
				}
				params = raw
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, err := appCtx.RestoreSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			var opts []session.SendOption
			switch silent {
			case "":
			case "true":
				opts = append(opts, session.Silent(true))
			case "false":
				opts = append(opts, session.Silent(false))
			default:
				return fmt.Errorf("--silent must be true or false")
			}

			res, err := e.Request(ctx, args[1], params, opts...)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&silent, "silent", "", "override the push-notification hint (true|false)")
	return cmd
}

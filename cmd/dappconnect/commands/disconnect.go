package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reason string

// disconnect <client-id>: end a stored session.
func disconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect <client-id>",
		Short: "End a stored session and notify the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, err := appCtx.RestoreSession(ctx, args[0])
			if err != nil {
				return err
			}
			if err := e.Disconnect(ctx, reason); err != nil {
				return err
			}
			fmt.Println("disconnected")
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason reported to disconnect listeners")
	return cmd
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// connect: propose a session and wait for the wallet to answer.
func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Propose a session and wait for the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := appCtx.NewSession()
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Fprintln(os.Stderr, "Scan or paste this URI in your wallet:")
			fmt.Println(e.URI())

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			st, err := e.Connect(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Connected. Client id: %s\n", e.ClientID())
			return printJSON(struct {
				ClientID string `json:"clientId"`
				Status   any    `json:"status"`
			}{e.ClientID(), st})
		},
	}
}

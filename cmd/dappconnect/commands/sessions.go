package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type sessionLister interface {
	ListSessions(ctx context.Context) ([]string, error)
}

// sessions: list stored client ids.
func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := appCtx.Store.(sessionLister)
			if !ok {
				return fmt.Errorf("the configured session store can't list sessions")
			}
			ids, err := l.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

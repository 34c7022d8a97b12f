package commands

import (
	"github.com/spf13/cobra"

	"dappconnect/internal/protocol/uri"
)

func parseURICmd() *cobra.Command {
	return &cobra.Command{
		Use:         "parse-uri <uri>",
		Short:       "Decode a pairing URI",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := uri.Parse(args[0])
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
}

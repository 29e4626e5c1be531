package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin-only commands",
	}

	cmd.AddCommand(newAdminPenaltyCmd())

	return cmd
}

func newAdminPenaltyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "penalty <username>",
		Short: "Set a player's coins to zero (debt is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Balance

			path := fmt.Sprintf("/api/v1/admin/players/%s/penalty", url.PathEscape(args[0]))
			if err := client.Post(path, nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

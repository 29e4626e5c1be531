package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Inspect open lobbies",
	}

	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyGetCmd())

	return cmd
}

func newLobbyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open lobbies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LobbyList

			if err := client.Get("/api/v1/lobbies", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show a lobby and its current round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])

			var result Lobby

			if err := client.Get(fmt.Sprintf("/api/v1/lobbies/%s", code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

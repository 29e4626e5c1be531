package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			start := time.Now()
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}
			if cfg.Verbose {
				result.Latency = time.Since(start).Round(time.Millisecond).String()
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Coins, debt and the leaderboard",
	}

	cmd.AddCommand(newWalletBalanceCmd())
	cmd.AddCommand(newWalletLeaderboardCmd())
	cmd.AddCommand(newWalletRepayCmd())

	return cmd
}

func newWalletBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your coins and debt",
		RunE: func(cmd *cobra.Command, args []string) error {
			var me Player
			if err := client.Get("/api/v1/players/me", &me); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(Balance{Username: me.Username, Coins: me.Coins, Debt: me.Debt})
			return nil
		},
	}
}

func newWalletLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the richest players",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard

			if err := client.Get("/api/v1/leaderboard?limit="+strconv.Itoa(limit), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries (1-100)")

	return cmd
}

func newWalletRepayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repay <amount>",
		Short: "Pay coins off your debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive whole number")
			}

			reply, err := sendAction(cmd.Context(), "repayDebt", map[string]int64{"amount": amount}, "", defaultReplyWait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(reply)
			return reply.Err()
		},
	}
}

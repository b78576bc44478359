package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/pongladder/internal/api/response"
)

func newLeaderboardCmd() *cobra.Command {
	var withStats bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show players ranked by rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if withStats {
				var result response.Index
				if err := client.Get(cmd.Context(), "/api/v1/index", &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result []response.LeaderboardEntry
			if err := client.Get(cmd.Context(), "/api/v1/leaderboard", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withStats, "stats", false, "Include ladder-wide totals")

	return cmd
}

func newAchievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "List every achievement that can be unlocked",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.Achievement
			if err := client.Get(cmd.Context(), "/api/v1/achievements", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check stored ratings against a replay of the game ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RatingAudit
			if err := client.Get(cmd.Context(), "/api/v1/ratings/audit", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

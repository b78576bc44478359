package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/pongladder/internal/api/request"
	"github.com/mcoot/pongladder/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameRecordCmd())

	return cmd
}

func newGameRecordCmd() *cobra.Command {
	var winner, loser int64
	var winnerScore, loserScore int

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the result of a game",
		Example: `  pongctl game record --winner 1 --loser 2
  pongctl game record --winner 1 --loser 2 --winner-score 21 --loser-score 17`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.RecordGameRequest{
				WinnerID: &winner,
				LoserID:  &loser,
			}

			// Scores are optional but travel as a pair
			winnerSet := cmd.Flags().Changed("winner-score")
			loserSet := cmd.Flags().Changed("loser-score")
			if winnerSet != loserSet {
				return fmt.Errorf("--winner-score and --loser-score must be given together")
			}
			if winnerSet {
				req.WinnerScore = &winnerScore
				req.LoserScore = &loserScore
			}

			var result response.Created
			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(result)
			} else {
				out.PrintMessage(fmt.Sprintf("Recorded game %d", result.ID))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&winner, "winner", 0, "Winner player id (required)")
	cmd.Flags().Int64Var(&loser, "loser", 0, "Loser player id (required)")
	cmd.Flags().IntVar(&winnerScore, "winner-score", 0, "Winner's points")
	cmd.Flags().IntVar(&loserScore, "loser-score", 0, "Loser's points")
	_ = cmd.MarkFlagRequired("winner")
	_ = cmd.MarkFlagRequired("loser")

	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/pongladder/internal/api/response"
)

func newHeadToHeadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "h2h <player1-id> <player2-id>",
		Short: "Show the head-to-head record of two players",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p1, err := parseID(args[0])
			if err != nil {
				return err
			}
			p2, err := parseID(args[1])
			if err != nil {
				return err
			}

			var result response.HeadToHead
			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/head-to-head?p1=%d&p2=%d", p1, p2), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

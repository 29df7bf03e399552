package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kiliankoe/planningpoker/internal/game"
)

var exportCmd = &cobra.Command{
	Use:   "export <session.json> [estimations.json]",
	Short: "write the estimations of a finished session file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := game.LoadSession(args[0])
		if err != nil {
			return err
		}
		if s.RoundStatus() != game.StatusAccepted {
			return fmt.Errorf("%s: %w (status %s, %d of %d votes)", args[0], game.ErrNotAccepted, s.RoundStatus(), s.VoteCount(), s.ExpectedVotes())
		}
		out := defaultExportPath(args[0])
		if len(args) == 2 {
			out = args[1]
		}
		written, err := game.ExportEstimations(s, out)
		if err != nil {
			return err
		}
		logger.Debug("exported estimations", "from", args[0], "to", written)
		pterm.Success.Printfln("Estimations written to %s", written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

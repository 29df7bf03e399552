package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "list consensus rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pterm.DefaultTable.WithHasHeader().WithData(rulesTable()).Render()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

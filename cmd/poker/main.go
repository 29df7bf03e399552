package main

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	logger    = slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))
	flagDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "poker",
	Short: "planning poker in one shared terminal",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			pterm.DefaultLogger.Level = pterm.LogLevelDebug
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

// logutilCmd represents the base logutil command.
var logutilCmd = &cobra.Command{
	Use:   "logutil",
	Short: "Utilities for interacting with the SQLite episode log.",
	Long: `The logutil command provides subcommands for processing and exporting
data from the SQLite episode log files produced by run/train/feedback.`,
}

func init() {
	rootCmd.AddCommand(logutilCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"melvingraph/cli"
	"melvingraph/config"
)

var (
	logutilExportDbPath string
	logutilExportFormat string
	logutilExportOutput string
)

// logutilExportCmd represents the logutil export command.
var logutilExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports the EpisodeSnapshots table from a SQLite episode log.",
	Long: `Export reads the SQLite database produced by run/train/feedback and
writes its EpisodeSnapshots table out. Currently only CSV is supported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultHostConfig()
		cfg.Mode = config.ModeLogUtil
		cfg.LogUtilDbPath = logutilExportDbPath
		cfg.LogUtilFormat = logutilExportFormat
		cfg.LogUtilOutput = logutilExportOutput

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for logutil export: %w", err)
		}

		orchestrator := cli.NewOrchestrator(cfg)
		if err := orchestrator.Run(nil, nil); err != nil {
			return fmt.Errorf("log export failed: %w", err)
		}
		return nil
	},
}

func init() {
	logutilCmd.AddCommand(logutilExportCmd)

	logutilExportCmd.Flags().StringVarP(&logutilExportDbPath, "dbPath", "d", "", "Path to the SQLite DB (required).")
	_ = logutilExportCmd.MarkFlagRequired("dbPath")
	logutilExportCmd.Flags().StringVarP(&logutilExportFormat, "format", "f", "csv", "Output format (currently only 'csv').")
	logutilExportCmd.Flags().StringVarP(&logutilExportOutput, "output", "o", "", "Output file (stdout if unspecified).")
}

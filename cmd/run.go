package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"melvingraph/cli"
	"melvingraph/config"
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Presents input to the graph for a single episode and prints the output.",
	Long: `Run loads the brain file (or fails if it doesn't exist yet), presents
input as a byte sequence, lets the graph propagate and select its own output,
then saves the graph back out so any self-supervised learning persists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildHostConfig(cmd, config.ModeRun)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for mode '%s': %w", config.ModeRun, err)
		}

		orchestrator := cli.NewOrchestrator(cfg)
		if err := orchestrator.Run([]byte(args[0]), nil); err != nil {
			return fmt.Errorf("run mode failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

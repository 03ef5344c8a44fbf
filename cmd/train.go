package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"melvingraph/cli"
	"melvingraph/config"
)

var trainEpochs int

var trainCmd = &cobra.Command{
	Use:   "train [input] [target]",
	Short: "Runs repeated supervised episodes driving input toward target.",
	Long: `Train repeats RunEpisode(input, target) for the configured number of
epochs, growing and pruning patterns and edges along the way, and saves the
graph when done. If the brain file doesn't exist yet, training starts from a
fresh graph.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildHostConfig(cmd, config.ModeTrain)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("epochs") {
			cfg.Epochs = trainEpochs
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for mode '%s': %w", config.ModeTrain, err)
		}

		orchestrator := cli.NewOrchestrator(cfg)
		if err := orchestrator.Run([]byte(args[0]), []byte(args[1])); err != nil {
			return fmt.Errorf("train mode failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().IntVarP(&trainEpochs, "epochs", "e", 30, "Number of supervised training episodes.")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"melvingraph/cli"
	"melvingraph/config"
)

var feedbackMagnitude float64

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Applies a standalone error-feedback signal without a target sequence.",
	Long: `Feedback calls apply_error_feedback on the loaded graph with the given
magnitude and no target, the host-level equivalent of the engine's
ApplyErrorFeedback entry point (spec.md §6). Requires an existing brain file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildHostConfig(cmd, config.ModeFeedback)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("magnitude") {
			cfg.FeedbackMagnitude = feedbackMagnitude
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for mode '%s': %w", config.ModeFeedback, err)
		}

		orchestrator := cli.NewOrchestrator(cfg)
		if err := orchestrator.Run(nil, nil); err != nil {
			return fmt.Errorf("feedback mode failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().Float64VarP(&feedbackMagnitude, "magnitude", "m", 1.0, "Error-feedback magnitude in [0,1].")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile points at an optional TOML file merged under CLI flags
	// (flags win when explicitly set).
	configFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "melvingraph",
	Short: "MelvinGraph: a self-regulating byte-level neural graph engine.",
	Long: `MelvinGraph is a command-line host around a byte-level neural graph
engine: nodes for the 256 byte values plus two reserved symbols, Hebbian
edges between them, and a pattern store that grows and prunes itself as
episodes run. Use a subcommand to run, train, or send feedback to a graph.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "configFile", "", "Path to a TOML configuration file merged under CLI flags.")
	rootCmd.PersistentFlags().StringVar(&brainFile, "brainFile", "melvingraph.brain", "Path to the persisted brain file (save/load).")
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbPath", "", "Path for the SQLite episode log (empty disables logging).")
	rootCmd.PersistentFlags().Uint32Var(&inputPort, "inputPort", 0, "Input port tag applied to injected nodes.")
	rootCmd.PersistentFlags().Uint32Var(&outputPort, "outputPort", 0, "Output port tag applied to emitted nodes.")
	rootCmd.PersistentFlags().StringVar(&contextCSV, "context", "", "Comma-separated 16-value ambient context vector.")
	rootCmd.PersistentFlags().BoolVar(&allowAntiparallelEdges, "allowAntiparallelEdges", true, "Allow Hebbian creation of antiparallel node pairs.")
	rootCmd.PersistentFlags().StringVar(&propagationHead, "propagationHead", "classic", "Propagation head: 'classic' or 'coherence'.")
}

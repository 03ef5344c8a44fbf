package cmd

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"melvingraph/config"
)

var (
	brainFile              string
	dbPath                 string
	inputPort              uint32
	outputPort             uint32
	contextCSV             string
	allowAntiparallelEdges bool
	propagationHead        string
)

// buildHostConfig merges config.DefaultHostConfig, an optional TOML file
// named by --configFile, and any persistent CLI flags the user explicitly
// set, in that precedence order -- flags always win over the file, and the
// file always wins over the defaults.
func buildHostConfig(cmd *cobra.Command, mode string) (config.HostConfig, error) {
	cfg := config.DefaultHostConfig()
	cfg.Mode = mode

	if configFile != "" {
		if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
			return cfg, fmt.Errorf("decoding TOML config file '%s': %w", configFile, err)
		}
		cfg.Mode = mode
	}

	if cmd.Flags().Changed("brainFile") {
		cfg.BrainFile = brainFile
	}
	if cmd.Flags().Changed("dbPath") {
		cfg.DbPath = dbPath
	}
	if cmd.Flags().Changed("inputPort") {
		cfg.InputPort = inputPort
	}
	if cmd.Flags().Changed("outputPort") {
		cfg.OutputPort = outputPort
	}
	if cmd.Flags().Changed("context") {
		ctx, err := parseContextCSV(contextCSV)
		if err != nil {
			return cfg, fmt.Errorf("invalid --context: %w", err)
		}
		cfg.Context = ctx
	}
	if cmd.Flags().Changed("allowAntiparallelEdges") {
		cfg.AllowAntiparallelEdges = allowAntiparallelEdges
	}
	if cmd.Flags().Changed("propagationHead") {
		cfg.PropagationHead = propagationHead
	}

	return cfg, nil
}

func parseContextCSV(csv string) ([16]float64, error) {
	var ctx [16]float64
	parts := strings.Split(csv, ",")
	if len(parts) != len(ctx) {
		return ctx, fmt.Errorf("expected %d comma-separated values, got %d", len(ctx), len(parts))
	}
	for i, p := range parts {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &v); err != nil {
			return ctx, fmt.Errorf("value %d (%q) is not a number: %w", i, p, err)
		}
		ctx[i] = v
	}
	return ctx, nil
}

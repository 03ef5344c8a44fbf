// Package config defines the host-level configuration for the MelvinGraph
// CLI: which port/context tags an episode runs under, where the trained
// graph and SQLite log live, and the two engine-level toggles spec.md's
// Design Notes leave as implementation decisions (§9 Open Questions #1 and
// #2). Everything the CORE engine derives from runtime statistics (§2-§4)
// is never represented here -- HostConfig only decides what episodes get
// run and where their state goes, never how a step's math works out.
package config

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ModeRun presents input and emits output for a single episode.
	ModeRun = "run"
	// ModeTrain runs repeated supervised episodes against an input/target
	// pair, the byte-sequence analogue of the teacher's digit-exposure mode.
	ModeTrain = "train"
	// ModeFeedback calls apply_error_feedback without a target.
	ModeFeedback = "feedback"
	// ModeLogUtil exports the SQLite episode log.
	ModeLogUtil = "logutil"
)

// SupportedModes lists all valid operation modes, used to validate Mode.
var SupportedModes = []string{ModeRun, ModeTrain, ModeFeedback, ModeLogUtil}

const contextDimension = 16

// HostConfig holds everything a CLI invocation needs that spec.md leaves to
// "external collaborators": port tags, the ambient context vector, where
// the brain file and SQLite log live, the two Open-Question toggles, and
// mode-specific knobs (training epoch count, feedback magnitude).
type HostConfig struct {
	Mode string `toml:"mode"`

	InputPort  uint32     `toml:"input_port"`
	OutputPort uint32     `toml:"output_port"`
	Context    [16]float64 `toml:"context"`

	BrainFile string `toml:"brain_file"`
	DbPath    string `toml:"db_path"`

	// AllowAntiparallelEdges mirrors spec.md §9 Open Question #1.
	AllowAntiparallelEdges bool `toml:"allow_antiparallel_edges"`
	// PropagationHead mirrors §9 Open Question #2: "classic" (default) or
	// "coherence".
	PropagationHead string `toml:"propagation_head"`

	// Mode 'train' specific configuration.
	Epochs int `toml:"epochs"`

	// Mode 'feedback' specific configuration.
	FeedbackMagnitude float64 `toml:"feedback_magnitude"`

	// Mode 'logutil' specific configuration.
	LogUtilDbPath string `toml:"logutil_dbpath"`
	LogUtilFormat string `toml:"logutil_format"`
	LogUtilOutput string `toml:"logutil_output"`
}

// DefaultHostConfig returns a HostConfig populated with sensible defaults
// for every field.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Mode:                   ModeRun,
		BrainFile:              "melvingraph.brain",
		AllowAntiparallelEdges: true,
		PropagationHead:        "classic",
		Epochs:                 30,
		FeedbackMagnitude:      1.0,
		LogUtilFormat:          "csv",
	}
}

// LoadCLIConfig populates a HostConfig by parsing flags from args using the
// given FlagSet. Kept independent of Cobra (which main.go actually drives)
// so it can be exercised directly in tests without going through
// cmd.Execute, mirroring the teacher's LoadCLIConfig.
func LoadCLIConfig(fSet *flag.FlagSet, args []string) (HostConfig, error) {
	cfg := DefaultHostConfig()

	var contextCSV string
	var inputPort, outputPort uint

	fSet.StringVar(&cfg.Mode, "mode", cfg.Mode, fmt.Sprintf("Operation mode: '%s', '%s', '%s', or '%s'.", ModeRun, ModeTrain, ModeFeedback, ModeLogUtil))
	fSet.UintVar(&inputPort, "inputPort", 0, "Input port tag applied to injected nodes.")
	fSet.UintVar(&outputPort, "outputPort", 0, "Output port tag applied to emitted nodes.")
	fSet.StringVar(&contextCSV, "context", "", "Comma-separated 16-value ambient context vector (default all zero).")
	fSet.StringVar(&cfg.BrainFile, "brainFile", cfg.BrainFile, "Path to the persisted brain file (save/load).")
	fSet.StringVar(&cfg.DbPath, "dbPath", "", "Path for the SQLite episode log (empty disables logging).")
	fSet.BoolVar(&cfg.AllowAntiparallelEdges, "allowAntiparallelEdges", cfg.AllowAntiparallelEdges, "Allow Hebbian creation of antiparallel node pairs.")
	fSet.StringVar(&cfg.PropagationHead, "propagationHead", cfg.PropagationHead, "Propagation head: 'classic' or 'coherence'.")
	fSet.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "Number of supervised training episodes for 'train' mode.")
	fSet.Float64Var(&cfg.FeedbackMagnitude, "magnitude", cfg.FeedbackMagnitude, "Error-feedback magnitude in [0,1] for 'feedback' mode.")
	fSet.StringVar(&cfg.LogUtilDbPath, "logutil.dbPath", "", "Path to SQLite DB for logutil mode.")
	fSet.StringVar(&cfg.LogUtilFormat, "logutil.format", cfg.LogUtilFormat, "Output format for logutil export (currently only 'csv').")
	fSet.StringVar(&cfg.LogUtilOutput, "logutil.output", "", "Output file for logutil export (stdout if empty).")

	// Filter test-runner flags the way the teacher does, so `go test ./...`
	// never trips "flag provided but not defined" on an inherited FlagSet.
	var filtered []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-test.") {
			filtered = append(filtered, arg)
		}
	}

	if err := fSet.Parse(filtered); err != nil {
		return cfg, fmt.Errorf("error parsing flags: %w", err)
	}
	cfg.InputPort = uint32(inputPort)
	cfg.OutputPort = uint32(outputPort)

	if contextCSV != "" {
		ctx, err := parseContext(contextCSV)
		if err != nil {
			return cfg, fmt.Errorf("invalid --context: %w", err)
		}
		cfg.Context = ctx
	}

	if cfg.BrainFile != "" {
		cfg.BrainFile = filepath.Clean(cfg.BrainFile)
	}
	if cfg.DbPath != "" {
		cfg.DbPath = filepath.Clean(cfg.DbPath)
	}

	return cfg, nil
}

func parseContext(csv string) ([16]float64, error) {
	var ctx [16]float64
	parts := strings.Split(csv, ",")
	if len(parts) != contextDimension {
		return ctx, fmt.Errorf("expected %d comma-separated values, got %d", contextDimension, len(parts))
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

// Validate checks a HostConfig for internal consistency, mirroring the
// teacher's AppConfig.Validate: general checks first, then mode-specific
// ones.
func (c *HostConfig) Validate() error {
	modeValid := false
	for _, m := range SupportedModes {
		if c.Mode == m {
			modeValid = true
			break
		}
	}
	if !modeValid {
		return fmt.Errorf("invalid mode '%s', supported modes are: %s", c.Mode, strings.Join(SupportedModes, ", "))
	}

	if c.PropagationHead != "classic" && c.PropagationHead != "coherence" {
		return fmt.Errorf("invalid propagationHead '%s', must be 'classic' or 'coherence'", c.PropagationHead)
	}

	switch c.Mode {
	case ModeTrain:
		if c.BrainFile == "" {
			return fmt.Errorf("brainFile must be specified for mode '%s'", c.Mode)
		}
		if c.Epochs <= 0 {
			return fmt.Errorf("epochs must be positive for mode '%s', got %d", c.Mode, c.Epochs)
		}
	case ModeRun, ModeFeedback:
		if c.BrainFile == "" {
			return fmt.Errorf("brainFile must be specified for mode '%s'", c.Mode)
		}
		if c.Mode == ModeFeedback && (c.FeedbackMagnitude < 0 || c.FeedbackMagnitude > 1) {
			return fmt.Errorf("magnitude must be in [0,1] for mode '%s', got %f", c.Mode, c.FeedbackMagnitude)
		}
	case ModeLogUtil:
		if strings.TrimSpace(c.LogUtilDbPath) == "" {
			return fmt.Errorf("logutil.dbPath must be specified for mode '%s'", c.Mode)
		}
		if c.LogUtilFormat != "csv" {
			return fmt.Errorf("invalid logutil.format '%s', currently only 'csv' is supported", c.LogUtilFormat)
		}
	}

	return nil
}

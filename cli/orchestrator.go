// Package cli provides the command-line orchestrator for MelvinGraph. It
// interprets the host configuration, owns the *graph.Graph for the process
// lifetime, and drives each of the four operation modes (run, train,
// feedback, logutil).
package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"melvingraph/config"
	"melvingraph/graph"
	"melvingraph/persist"
	"melvingraph/storage"
)

// Orchestrator manages one CLI invocation's lifecycle: config, the graph
// instance it runs episodes against, and the optional SQLite episode log.
type Orchestrator struct {
	Cfg    config.HostConfig
	Graph  *graph.Graph
	Logger *storage.SQLiteLogger

	// loadBrainFn and saveBrainFn allow mocking persistence in tests.
	loadBrainFn func(path string) (*graph.Graph, error)
	saveBrainFn func(g *graph.Graph, path string) error
}

// NewOrchestrator creates an orchestrator for cfg, defaulting to the real
// persist.Load/persist.Save functions.
func NewOrchestrator(cfg config.HostConfig) *Orchestrator {
	return &Orchestrator{
		Cfg:         cfg,
		loadBrainFn: persist.Load,
		saveBrainFn: persist.Save,
	}
}

// Run executes the configured mode against input/target. target is ignored
// outside ModeTrain.
func (o *Orchestrator) Run(input, target []byte) error {
	fmt.Println("MelvinGraph initializing...")
	fmt.Printf("Selected mode: %s\n", o.Cfg.Mode)
	o.printModeSpecificConfig()

	if err := o.initializeLogger(); err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	if o.Logger != nil {
		defer func() {
			if errClose := o.Logger.Close(); errClose != nil {
				log.Printf("error closing SQLite logger: %v", errClose)
			}
		}()
	}

	if o.Cfg.Mode != config.ModeLogUtil {
		if err := o.loadOrCreateGraph(); err != nil {
			return err
		}
	}

	startTime := time.Now()
	var errRun error
	switch o.Cfg.Mode {
	case config.ModeRun:
		errRun = o.runRunMode(input)
	case config.ModeTrain:
		errRun = o.runTrainMode(input, target)
	case config.ModeFeedback:
		errRun = o.runFeedbackMode()
	case config.ModeLogUtil:
		errRun = o.runLogUtilMode()
	default:
		return fmt.Errorf("unknown or unsupported mode in Orchestrator.Run: %s", o.Cfg.Mode)
	}
	if errRun != nil {
		return fmt.Errorf("error during execution of mode '%s': %w", o.Cfg.Mode, errRun)
	}

	fmt.Printf("\nMelvinGraph session finished. Total duration: %s.\n", time.Since(startTime))
	return nil
}

// options translates the HostConfig's Open-Question toggles into graph.Options.
func (o *Orchestrator) options() graph.Options {
	head := graph.HeadClassic
	if o.Cfg.PropagationHead == "coherence" {
		head = graph.HeadCoherence
	}
	return graph.Options{AllowAntiparallelEdges: o.Cfg.AllowAntiparallelEdges, Head: head}
}

// initializeLogger sets up the SQLite logger if a DbPath was configured.
// Logging is never active for ModeLogUtil, which reads a log rather than
// writing one.
func (o *Orchestrator) initializeLogger() error {
	if o.Cfg.DbPath == "" || o.Cfg.Mode == config.ModeLogUtil {
		return nil
	}
	validatedDbPath, err := o.validatePath(o.Cfg.DbPath, false)
	if err != nil {
		return fmt.Errorf("invalid dbPath '%s': %w", o.Cfg.DbPath, err)
	}
	o.Cfg.DbPath = validatedDbPath

	o.Logger, err = storage.NewSQLiteLogger(o.Cfg.DbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite logger at %s: %w", o.Cfg.DbPath, err)
	}
	fmt.Printf("SQLite logging enabled: %s\n", o.Cfg.DbPath)
	return nil
}

// validatePath cleans, absolutizes, and performs basic checks on a file path.
// forRead selects whether the path itself must already exist (true) or only
// its parent directory must (false, for files about to be written).
func (o *Orchestrator) validatePath(rawPath string, forRead bool) (string, error) {
	if strings.TrimSpace(rawPath) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanedPath := filepath.Clean(rawPath)
	absPath, err := filepath.Abs(cleanedPath)
	if err != nil {
		return "", fmt.Errorf("could not determine absolute path for '%s': %w", cleanedPath, err)
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			if forRead {
				return "", fmt.Errorf("path '%s' (resolved to '%s') does not exist", rawPath, absPath)
			}
			parentDir := filepath.Dir(absPath)
			parentInfo, parentErr := os.Stat(parentDir)
			if parentErr != nil {
				if os.IsNotExist(parentErr) {
					return "", fmt.Errorf("parent directory for '%s' (resolved to '%s') does not exist", rawPath, parentDir)
				}
				return "", fmt.Errorf("could not stat parent directory '%s' for path '%s': %w", parentDir, rawPath, parentErr)
			}
			if !parentInfo.IsDir() {
				return "", fmt.Errorf("parent path '%s' for '%s' is not a directory", parentDir, rawPath)
			}
			return absPath, nil
		}
		return "", fmt.Errorf("could not stat path '%s' (resolved to '%s'): %w", rawPath, absPath, err)
	}

	if forRead {
		if fileInfo.IsDir() {
			return "", fmt.Errorf("path '%s' (resolved to '%s') is a directory, expected a file for reading", rawPath, absPath)
		}
	} else if fileInfo.IsDir() {
		return "", fmt.Errorf("path '%s' (resolved to '%s') exists and is a directory, expected a file path for writing", rawPath, absPath)
	}

	return absPath, nil
}

// loadOrCreateGraph loads the brain file named by Cfg.BrainFile if it exists,
// otherwise starts a fresh graph. A missing brain file is only acceptable in
// ModeTrain, where training from scratch is the normal first invocation.
func (o *Orchestrator) loadOrCreateGraph() error {
	opts := o.options()

	if _, err := os.Stat(o.Cfg.BrainFile); err == nil {
		g, errLoad := o.loadBrainFn(o.Cfg.BrainFile)
		if errLoad != nil {
			if o.Cfg.Mode == config.ModeTrain {
				fmt.Printf("Note: could not load brain file %s (%v), starting from a fresh graph.\n", o.Cfg.BrainFile, errLoad)
				o.Graph = graph.Create(opts)
			} else {
				return fmt.Errorf("failed to load brain file %s: %w", o.Cfg.BrainFile, errLoad)
			}
		} else {
			g.Opts = opts
			o.Graph = g
			fmt.Printf("Existing brain loaded from %s\n", o.Cfg.BrainFile)
		}
	} else if o.Cfg.Mode == config.ModeTrain {
		o.Graph = graph.Create(opts)
	} else {
		return fmt.Errorf("brain file %s not found; train the graph first", o.Cfg.BrainFile)
	}

	o.Graph.SetInputPort(o.Cfg.InputPort)
	o.Graph.SetOutputPort(o.Cfg.OutputPort)
	o.Graph.SetContext(o.Cfg.Context)
	return nil
}

// saveGraph persists the current graph to Cfg.BrainFile.
func (o *Orchestrator) saveGraph() error {
	validatedPath, err := o.validatePath(o.Cfg.BrainFile, false)
	if err != nil {
		return fmt.Errorf("invalid brain file path '%s' for saving: %w", o.Cfg.BrainFile, err)
	}
	if err := o.saveBrainFn(o.Graph, validatedPath); err != nil {
		return fmt.Errorf("failed to save brain to %s: %w", validatedPath, err)
	}
	fmt.Printf("Brain saved to %s\n", validatedPath)
	return nil
}

// printModeSpecificConfig outputs configuration details relevant to the
// current mode.
func (o *Orchestrator) printModeSpecificConfig() {
	switch o.Cfg.Mode {
	case config.ModeRun:
		fmt.Printf("  ModeRun: brainFile=%s inputPort=%d outputPort=%d\n", o.Cfg.BrainFile, o.Cfg.InputPort, o.Cfg.OutputPort)
	case config.ModeTrain:
		fmt.Printf("  ModeTrain: epochs=%d brainFile=%s\n", o.Cfg.Epochs, o.Cfg.BrainFile)
	case config.ModeFeedback:
		fmt.Printf("  ModeFeedback: magnitude=%.3f brainFile=%s\n", o.Cfg.FeedbackMagnitude, o.Cfg.BrainFile)
	case config.ModeLogUtil:
		fmt.Printf("  ModeLogUtil: dbPath=%s format=%s\n", o.Cfg.LogUtilDbPath, o.Cfg.LogUtilFormat)
	}
}

// runRunMode presents input for a single episode and reports the output.
func (o *Orchestrator) runRunMode(input []byte) error {
	if err := o.Graph.RunEpisode(input, nil); err != nil {
		return fmt.Errorf("episode failed: %w", err)
	}
	output := o.Graph.GetOutput()
	fmt.Printf("Output: %q\n", output)

	if o.Logger != nil {
		if err := o.Logger.LogEpisode(o.Graph, len(output)); err != nil {
			return fmt.Errorf("failed to log episode: %w", err)
		}
	}
	return o.saveGraph()
}

// runTrainMode runs Cfg.Epochs supervised episodes of input against target.
func (o *Orchestrator) runTrainMode(input, target []byte) error {
	for epoch := 0; epoch < o.Cfg.Epochs; epoch++ {
		if err := o.Graph.RunEpisode(input, target); err != nil {
			return fmt.Errorf("training episode %d/%d failed: %w", epoch+1, o.Cfg.Epochs, err)
		}
		if epoch%10 == 0 || epoch == o.Cfg.Epochs-1 {
			fmt.Printf("Epoch %d/%d: error_rate=%.4f learning_rate=%.4f patterns=%d\n",
				epoch+1, o.Cfg.Epochs, o.Graph.GetErrorRate(), o.Graph.State.LearningRate, o.Graph.GetPatternCount())
		}
		if o.Logger != nil {
			if err := o.Logger.LogEpisode(o.Graph, len(o.Graph.GetOutput())); err != nil {
				return fmt.Errorf("failed to log training episode %d: %w", epoch+1, err)
			}
		}
	}
	fmt.Println("Training phase completed.")
	return o.saveGraph()
}

// runFeedbackMode applies a standalone error-feedback signal with no target,
// the host-level analogue of apply_error_feedback from §6.
func (o *Orchestrator) runFeedbackMode() error {
	if err := o.Graph.ApplyErrorFeedback(o.Cfg.FeedbackMagnitude); err != nil {
		return fmt.Errorf("apply_error_feedback failed: %w", err)
	}
	fmt.Printf("Applied error feedback magnitude=%.3f. New error_rate=%.4f\n", o.Cfg.FeedbackMagnitude, o.Graph.GetErrorRate())

	if o.Logger != nil {
		if err := o.Logger.LogEpisode(o.Graph, 0); err != nil {
			return fmt.Errorf("failed to log feedback event: %w", err)
		}
	}
	return o.saveGraph()
}

// runLogUtilMode exports the SQLite episode log to CSV.
func (o *Orchestrator) runLogUtilMode() error {
	fmt.Println("\nMelvinGraph log utility...")
	if _, err := o.validatePath(o.Cfg.LogUtilDbPath, true); err != nil {
		return fmt.Errorf("invalid --logutil.dbPath '%s': %w", o.Cfg.LogUtilDbPath, err)
	}

	fmt.Printf("  Database: %s\n", o.Cfg.LogUtilDbPath)
	fmt.Printf("  Format: %s\n", o.Cfg.LogUtilFormat)
	if o.Cfg.LogUtilOutput != "" {
		fmt.Printf("  Output: %s\n", o.Cfg.LogUtilOutput)
	} else {
		fmt.Println("  Output: stdout")
	}

	if err := storage.ExportLogData(o.Cfg.LogUtilDbPath, o.Cfg.LogUtilFormat, o.Cfg.LogUtilOutput); err != nil {
		return fmt.Errorf("log export failed: %w", err)
	}
	fmt.Println("Log export completed successfully.")
	return nil
}

// --- Test wrappers (exported for use from the _test package) ---

// SetLoadBrainFn allows tests to inject a mock loadBrainFn.
func (o *Orchestrator) SetLoadBrainFn(fn func(path string) (*graph.Graph, error)) {
	o.loadBrainFn = fn
}

// SetSaveBrainFn allows tests to inject a mock saveBrainFn.
func (o *Orchestrator) SetSaveBrainFn(fn func(g *graph.Graph, path string) error) {
	o.saveBrainFn = fn
}

// InitializeLoggerForTest wraps initializeLogger.
func (o *Orchestrator) InitializeLoggerForTest() error { return o.initializeLogger() }

// CloseLoggerForTest wraps closing the logger.
func (o *Orchestrator) CloseLoggerForTest() error {
	if o.Logger != nil {
		return o.Logger.Close()
	}
	return nil
}

// LoadOrCreateGraphForTest wraps loadOrCreateGraph.
func (o *Orchestrator) LoadOrCreateGraphForTest() error { return o.loadOrCreateGraph() }

// SaveGraphForTest wraps saveGraph.
func (o *Orchestrator) SaveGraphForTest() error { return o.saveGraph() }

// RunRunModeForTest wraps runRunMode.
func (o *Orchestrator) RunRunModeForTest(input []byte) error { return o.runRunMode(input) }

// RunTrainModeForTest wraps runTrainMode.
func (o *Orchestrator) RunTrainModeForTest(input, target []byte) error {
	return o.runTrainMode(input, target)
}

// RunFeedbackModeForTest wraps runFeedbackMode.
func (o *Orchestrator) RunFeedbackModeForTest() error { return o.runFeedbackMode() }

// RunLogUtilModeForTest wraps runLogUtilMode.
func (o *Orchestrator) RunLogUtilModeForTest() error { return o.runLogUtilMode() }

// ValidatePathForTest wraps validatePath.
func (o *Orchestrator) ValidatePathForTest(rawPath string, forRead bool) (string, error) {
	return o.validatePath(rawPath, forRead)
}

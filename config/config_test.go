package config

import (
	"flag"
	"testing"
)

func TestDefaultHostConfig(t *testing.T) {
	cfg := DefaultHostConfig()

	if cfg.Mode != ModeRun {
		t.Errorf("expected default Mode %s, got %s", ModeRun, cfg.Mode)
	}
	if cfg.BrainFile != "melvingraph.brain" {
		t.Errorf("expected default BrainFile melvingraph.brain, got %s", cfg.BrainFile)
	}
	if !cfg.AllowAntiparallelEdges {
		t.Error("expected AllowAntiparallelEdges to default true")
	}
	if cfg.PropagationHead != "classic" {
		t.Errorf("expected default PropagationHead classic, got %s", cfg.PropagationHead)
	}
	if cfg.Epochs != 30 {
		t.Errorf("expected default Epochs 30, got %d", cfg.Epochs)
	}
}

func TestLoadCLIConfig_Defaults(t *testing.T) {
	fSet := flag.NewFlagSet("testDefaults", flag.ContinueOnError)
	cfg, err := LoadCLIConfig(fSet, nil)
	if err != nil {
		t.Fatalf("LoadCLIConfig failed with default args: %v", err)
	}
	if cfg.Mode != ModeRun {
		t.Errorf("expected default Mode %s, got %s", ModeRun, cfg.Mode)
	}
	if cfg.Context != ([16]float64{}) {
		t.Errorf("expected zero context by default, got %v", cfg.Context)
	}
}

func TestLoadCLIConfig_CustomValues(t *testing.T) {
	fSet := flag.NewFlagSet("testCustom", flag.ContinueOnError)
	args := []string{
		"-mode", "train",
		"-inputPort", "3",
		"-epochs", "100",
		"-brainFile", "custom.brain",
		"-context", "1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0",
	}
	cfg, err := LoadCLIConfig(fSet, args)
	if err != nil {
		t.Fatalf("LoadCLIConfig failed with custom args: %v", err)
	}
	if cfg.Mode != ModeTrain {
		t.Errorf("expected Mode train, got %s", cfg.Mode)
	}
	if cfg.InputPort != 3 {
		t.Errorf("expected InputPort 3, got %d", cfg.InputPort)
	}
	if cfg.Epochs != 100 {
		t.Errorf("expected Epochs 100, got %d", cfg.Epochs)
	}
	if cfg.BrainFile != "custom.brain" {
		t.Errorf("expected BrainFile custom.brain, got %s", cfg.BrainFile)
	}
	if cfg.Context[0] != 1 {
		t.Errorf("expected Context[0] 1, got %f", cfg.Context[0])
	}
}

func TestLoadCLIConfig_BadContext(t *testing.T) {
	fSet := flag.NewFlagSet("testBadContext", flag.ContinueOnError)
	_, err := LoadCLIConfig(fSet, []string{"-context", "1,2,3"})
	if err == nil {
		t.Fatal("expected error for a context vector with the wrong arity")
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Mode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestValidate_TrainRequiresBrainFile(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Mode = ModeTrain
	cfg.BrainFile = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty brainFile in train mode")
	}
}

func TestValidate_TrainRequiresPositiveEpochs(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Mode = ModeTrain
	cfg.Epochs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero epochs in train mode")
	}
}

func TestValidate_FeedbackMagnitudeRange(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Mode = ModeFeedback
	cfg.FeedbackMagnitude = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range feedback magnitude")
	}
}

func TestValidate_LogUtilRequiresDbPath(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Mode = ModeLogUtil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing logutil.dbPath")
	}
	cfg.LogUtilDbPath = "x.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_InvalidPropagationHead(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.PropagationHead = "quantum"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid propagation head")
	}
}

package sysstate

import (
	"testing"

	"melvingraph/common"
)

func TestNewDefaults(t *testing.T) {
	s := New()
	if s.LearningRate != 0.1 {
		t.Errorf("expected default learning rate 0.1, got %v", s.LearningRate)
	}
	if s.ErrorRate != 0.5 {
		t.Errorf("expected default error rate 0.5, got %v", s.ErrorRate)
	}
}

func TestUpdateErrorRateIsEMA(t *testing.T) {
	s := New()
	s.ErrorRate = 0.5
	s.UpdateErrorRate(1.0) // perfect accuracy -> error contribution 0
	if got, want := s.ErrorRate, 0.45; !almostEqual(got, want) {
		t.Errorf("UpdateErrorRate(1.0): got %v, want %v", got, want)
	}
	s.UpdateErrorRate(0.0) // zero accuracy -> error contribution 1
	if got, want := s.ErrorRate, 0.9*0.45+0.1; !almostEqual(got, want) {
		t.Errorf("UpdateErrorRate(0.0): got %v, want %v", got, want)
	}
}

func TestApplyErrorFeedbackRaisesErrorRateTowardOne(t *testing.T) {
	s := New()
	s.ErrorRate = 0.2
	s.ApplyErrorFeedback(1.0)
	if s.ErrorRate != 1.0 {
		t.Errorf("expected error rate to saturate at 1.0 on full-magnitude feedback, got %v", s.ErrorRate)
	}

	s.ErrorRate = 0.2
	s.ApplyErrorFeedback(0.5)
	if s.ErrorRate <= 0.2 {
		t.Errorf("expected error rate to increase, got %v", s.ErrorRate)
	}
	if s.ErrorRate > 1.0 {
		t.Errorf("expected error rate to stay clamped to 1.0, got %v", s.ErrorRate)
	}
}

func TestPushOutputSymbolTracksVarianceOverWindow(t *testing.T) {
	s := New()
	for i := 0; i < 30; i++ {
		s.PushOutputSymbol(5.0) // constant stream -> zero variance
	}
	if s.OutputVariance != 0 {
		t.Errorf("expected zero variance for constant output, got %v", s.OutputVariance)
	}

	s2 := New()
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			s2.PushOutputSymbol(0.0)
		} else {
			s2.PushOutputSymbol(10.0)
		}
	}
	if s2.OutputVariance <= 0 {
		t.Errorf("expected positive variance for alternating output, got %v", s2.OutputVariance)
	}
}

func TestPushOutputSymbolRingCapacity(t *testing.T) {
	s := New()
	for i := 0; i < outputHistoryCapacity+10; i++ {
		s.PushOutputSymbol(float64(i))
	}
	if len(s.outputHistory) != outputHistoryCapacity {
		t.Errorf("expected output history capped at %d, got %d", outputHistoryCapacity, len(s.outputHistory))
	}
	// Oldest entries should have been dropped; the most recent value present.
	if s.outputHistory[len(s.outputHistory)-1] != float64(outputHistoryCapacity+9) {
		t.Errorf("expected newest entry retained, got %v", s.outputHistory[len(s.outputHistory)-1])
	}
}

func TestPushInputHistoryRingCapacity(t *testing.T) {
	s := New()
	for i := 0; i < inputHistoryCapacity+5; i++ {
		s.PushInputHistory([]common.NodeID{common.NodeID(i % 256)})
	}
	if len(s.InputHistory()) != inputHistoryCapacity {
		t.Errorf("expected input history capped at %d, got %d", inputHistoryCapacity, len(s.InputHistory()))
	}
}

func TestResetVolatileClearsPerEpisodeAggregatesButKeepsHistory(t *testing.T) {
	s := New()
	s.PushInputHistory([]common.NodeID{1, 2, 3})
	s.PushOutputSymbol(1.0)
	s.Step = 42
	s.TotalActivation = 99
	s.CompetitionPressure = 0.7
	s.SelectionConfidence = 0.9

	s.ResetVolatile()

	if s.Step != 0 || s.TotalActivation != 0 || s.CompetitionPressure != 0 || s.SelectionConfidence != 0 {
		t.Error("expected per-episode volatile fields cleared")
	}
	if len(s.outputHistory) != 0 {
		t.Error("expected output history cleared on reset")
	}
	if len(s.InputHistory()) != 1 {
		t.Error("expected input history to persist across episode reset")
	}
}

func TestRecomputeDerivesPressuresAndLearningRate(t *testing.T) {
	s := New()
	s.ErrorRate = 0.5
	s.Recompute(0.3, 0.4, 10, 5, 20, 3, 2, 4)

	if s.AvgActivation != 0.3 || s.AvgThreshold != 0.4 {
		t.Errorf("expected averages passed through, got act=%v thr=%v", s.AvgActivation, s.AvgThreshold)
	}
	if s.ActiveNodeCount != 5 || s.ActiveEdgeCount != 20 || s.ActivePatternCount != 3 {
		t.Error("expected active counts passed through")
	}
	if s.ActivationRate != 10 {
		t.Errorf("expected activation rate 10 (delta from zero prev), got %v", s.ActivationRate)
	}
	if s.CompletionPressure != 0.5 { // outputLen=2, inputLen=4
		t.Errorf("expected completion pressure 0.5, got %v", s.CompletionPressure)
	}
	wantLR := clamp01(0.3*(1-0.5) + 0.1)
	if s.LearningRate != wantLR {
		t.Errorf("expected learning rate %v, got %v", wantLR, s.LearningRate)
	}

	s.Recompute(0.3, 0.4, 20, 5, 20, 3, 0, 0)
	if s.CompletionPressure != 0 {
		t.Errorf("expected zero completion pressure when input length is zero, got %v", s.CompletionPressure)
	}
}

func TestDetectLoopPressureFindsShortRepeatingCycle(t *testing.T) {
	history := []float64{1, 2, 1, 2, 1, 2, 1, 2}
	if got := detectLoopPressure(history); got != 1 {
		t.Errorf("expected loop pressure 1 for a period-2 repeating cycle, got %v", got)
	}
}

func TestDetectLoopPressureZeroForNovelSequence(t *testing.T) {
	history := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	if got := detectLoopPressure(history); got != 0 {
		t.Errorf("expected loop pressure 0 for a non-repeating sequence, got %v", got)
	}
}

func TestDetectLoopPressureShortHistoryIsZero(t *testing.T) {
	if got := detectLoopPressure([]float64{1, 1, 1}); got != 0 {
		t.Errorf("expected loop pressure 0 for history shorter than 4 entries, got %v", got)
	}
}

func almostEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

// Package sysstate implements SystemState: the per-step computed aggregates
// (averages, pressures, rates, self-tuning knobs) that every other component
// reads to self-regulate, plus the output-history ring buffer used for
// variance/loop detection and the input-history ring used for positional
// pattern detection.
package sysstate

import "melvingraph/common"

const (
	outputHistoryCapacity = 50
	varianceWindow         = 20
	inputHistoryCapacity   = 50
)

// State holds the aggregates recomputed at the interval the EpisodeDriver
// chooses (§4.9: every step in training mode, every 5 steps otherwise).
type State struct {
	Step common.Step

	AvgActivation common.Activation
	AvgThreshold  common.Threshold

	TotalActivation common.Activation

	ActiveNodeCount    int
	ActiveEdgeCount    int
	ActivePatternCount int

	ActivationRate float64 // delta of TotalActivation vs previous step
	LearningRate   float64
	ErrorRate      float64 // EMA of 1 - accuracy

	CompetitionPressure float64 // from activation variance
	ExplorationPressure float64 // from error rate
	MetabolicPressure   float64 // from graph density
	LoopPressure        float64 // from repetition detection
	CompletionPressure  float64 // from output/input ratio

	ActivationFlowAdjustment float64
	MeaningAccumulationRate  float64
	LoopBreakingStrength     float64
	DiversityPressure        float64

	SelectionConfidence float64

	prevTotalActivation common.Activation

	outputHistory []float64 // ring, capacity outputHistoryCapacity
	OutputVariance float64

	inputHistory [][]common.NodeID // ring, capacity inputHistoryCapacity
}

// New returns a fresh State with learning-rate and error-rate defaults that
// make early episodes behave sensibly before any feedback has occurred.
func New() *State {
	return &State{
		LearningRate: 0.1,
		ErrorRate:    0.5,
	}
}

// PushOutputSymbol appends a byte value to the output-history ring
// (dropping the oldest entry past capacity) and recomputes variance over the
// last varianceWindow entries.
func (s *State) PushOutputSymbol(v float64) {
	s.outputHistory = append(s.outputHistory, v)
	if len(s.outputHistory) > outputHistoryCapacity {
		s.outputHistory = s.outputHistory[1:]
	}
	s.OutputVariance = variance(tail(s.outputHistory, varianceWindow))
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return sumSq / float64(len(xs))
}

// PushInputHistory records a fresh input sequence into the input-history
// ring, dropping the oldest entry past capacity. Used exclusively by
// positional pattern detection.
func (s *State) PushInputHistory(seq []common.NodeID) {
	cp := append([]common.NodeID(nil), seq...)
	s.inputHistory = append(s.inputHistory, cp)
	if len(s.inputHistory) > inputHistoryCapacity {
		s.inputHistory = s.inputHistory[1:]
	}
}

// InputHistory returns the ring buffer of recent input sequences, oldest
// first.
func (s *State) InputHistory() [][]common.NodeID {
	return s.inputHistory
}

// ResetVolatile clears the per-episode aggregates, the output-history ring
// and OutputVariance. The input-history ring is kept: it is inter-episode
// memory per §4.9 step 2. LearningRate, ErrorRate and the averages and
// counts set by Recompute are left as they are.
func (s *State) ResetVolatile() {
	s.Step = 0
	s.TotalActivation = 0
	s.prevTotalActivation = 0
	s.ActivationRate = 0
	s.CompetitionPressure = 0
	s.ExplorationPressure = 0
	s.MetabolicPressure = 0
	s.LoopPressure = 0
	s.CompletionPressure = 0
	s.SelectionConfidence = 0
	s.outputHistory = s.outputHistory[:0]
	s.OutputVariance = 0
}

// Recompute derives the aggregates for this step from raw graph counters.
// prevTotalActivation is tracked on State itself (Design Notes: this must
// not be a package-level/translation-unit global, since that breaks
// multi-instance hosting).
func (s *State) Recompute(avgActivation common.Activation, avgThreshold common.Threshold, totalActivation common.Activation, activeNodes, activeEdges, activePatterns int, outputLen, inputLen int) {
	s.AvgActivation = avgActivation
	s.AvgThreshold = avgThreshold
	s.ActiveNodeCount = activeNodes
	s.ActiveEdgeCount = activeEdges
	s.ActivePatternCount = activePatterns

	s.ActivationRate = float64(totalActivation - s.prevTotalActivation)
	s.prevTotalActivation = totalActivation
	s.TotalActivation = totalActivation

	s.CompetitionPressure = clamp01(s.OutputVariance / (s.OutputVariance + 1))
	s.ExplorationPressure = clamp01(s.ErrorRate)
	s.MetabolicPressure = clamp01(float64(activeEdges) / 2000.0)

	s.LoopPressure = detectLoopPressure(s.outputHistory)

	if inputLen > 0 {
		s.CompletionPressure = clamp01(float64(outputLen) / float64(inputLen))
	} else {
		s.CompletionPressure = 0
	}

	s.ActivationFlowAdjustment = 1 - 0.5*s.CompetitionPressure
	s.MeaningAccumulationRate = 1 + s.ExplorationPressure
	s.LoopBreakingStrength = s.LoopPressure
	s.DiversityPressure = s.ExplorationPressure * (1 - s.CompetitionPressure)

	s.LearningRate = clamp01(0.3*(1-s.ExplorationPressure) + 0.1)
}

// detectLoopPressure estimates repetition in the recent output history: a
// short, exactly-repeating cycle near the tail drives pressure toward 1.
func detectLoopPressure(history []float64) float64 {
	n := len(history)
	if n < 4 {
		return 0
	}
	for period := 1; period <= n/3 && period <= 8; period++ {
		matches := true
		for i := n - 1; i >= n-period*2; i-- {
			if history[i] != history[i-period] {
				matches = false
				break
			}
		}
		if matches {
			return 1
		}
	}
	return 0
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// UpdateErrorRate applies the EMA update error_rate = 0.9*error_rate +
// 0.1*(1-accuracy), per the Learner's "update system error_rate as an EMA of
// 1 - accuracy."
func (s *State) UpdateErrorRate(accuracy float64) {
	s.ErrorRate = 0.9*s.ErrorRate + 0.1*(1-accuracy)
}

// ApplyErrorFeedback is the universal negative signal used by
// apply_error_feedback: it raises ErrorRate proportionally to magnitude
// without requiring a target.
func (s *State) ApplyErrorFeedback(magnitude float64) {
	s.ErrorRate = clamp01(s.ErrorRate + magnitude*(1-s.ErrorRate))
}

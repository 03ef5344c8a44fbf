package learn

import (
	"testing"

	"melvingraph/common"
	"melvingraph/selector"
	"melvingraph/sysstate"
)

func TestSupervisedFeedback_MatchStrengthensPrediction(t *testing.T) {
	l, _, _, store := newTestLearner()
	state := sysstate.New()

	a, b := common.NodeID('a'), common.NodeID('b')
	handle := store.Create([]common.NodeID{a}, common.ContextVector{}, 0)
	p := store.Get(handle)
	p.PredictedNodes = []common.NodeID{b}
	p.PredictionWeights = []float64{0.2}

	steps := []StepRecord{
		{Emitted: b, Result: selector.Result{
			Patterns: []selector.PatternContribution{{Pattern: handle, Prediction: b, Weight: 1.0}},
			Mass:     1.0,
		}},
	}

	l.SupervisedFeedback(state, []common.NodeID{b}, []common.NodeID{b}, steps)

	if p.PredictionWeights[0] <= 0.2 {
		t.Errorf("expected a matched prediction's weight to rise, got %v", p.PredictionWeights[0])
	}
	if p.PredictionSuccesses != 1 {
		t.Errorf("expected one recorded prediction success, got %d", p.PredictionSuccesses)
	}
}

func TestSupervisedFeedback_MismatchWeakensPrediction(t *testing.T) {
	l, _, _, store := newTestLearner()
	state := sysstate.New()

	a, b, c := common.NodeID('a'), common.NodeID('b'), common.NodeID('c')
	handle := store.Create([]common.NodeID{a}, common.ContextVector{}, 0)
	p := store.Get(handle)
	p.PredictedNodes = []common.NodeID{b}
	p.PredictionWeights = []float64{0.8}

	steps := []StepRecord{
		{Emitted: b, Result: selector.Result{
			Patterns: []selector.PatternContribution{{Pattern: handle, Prediction: b, Weight: 1.0}},
			Mass:     1.0,
		}},
	}

	l.SupervisedFeedback(state, []common.NodeID{b}, []common.NodeID{c}, steps)

	if p.PredictionWeights[0] >= 0.8 {
		t.Errorf("expected a mismatched prediction's weight to shrink, got %v", p.PredictionWeights[0])
	}
}

func TestSupervisedFeedback_TeachesEndMarkerAtTargetTail(t *testing.T) {
	l, _, edges, _ := newTestLearner()
	state := sysstate.New()

	a, b := common.NodeID('a'), common.NodeID('b')
	target := []common.NodeID{a, b}

	l.SupervisedFeedback(state, nil, target, nil)

	if edges.Find(b, common.EndMarker) == nil {
		t.Error("expected an edge from the target's tail to END_MARKER")
	}
}

package learn

import (
	"melvingraph/common"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// UpdateLearnedParameters implements §4.11's learned-parameter update: for
// every active pattern whose predictions intersect the target (or generated
// output, in self-supervised mode), nudge the four propagation scalars up on
// success and down on failure, and shift the selection factors toward
// pattern-driven selection (SelectionPatternFactor up, SelectionWeightFactor
// down) on success or toward weight/activation (SelectionWeightFactor and
// SelectionActivationFactor up, SelectionPatternFactor down) on failure.
// SelectionContextFactor is not adjusted.
func (l *Learner) UpdateLearnedParameters(state *sysstate.State, target, output []common.NodeID) {
	reference := target
	if reference == nil {
		reference = output
	}

	l.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active {
			return
		}
		if !predictsAny(p, reference) {
			return
		}

		success := p.UtilityRate() >= 0.5

		updateTransferScalars(p, success)
		updateSelectionScalars(p, success)
	})
}

func predictsAny(p *pattern.Pattern, reference []common.NodeID) bool {
	if len(reference) == 0 {
		return false
	}
	want := map[common.NodeID]bool{}
	for _, r := range reference {
		want[r] = true
	}
	for _, pred := range p.PredictedNodes {
		if want[pred] {
			return true
		}
	}
	return false
}

func updateTransferScalars(p *pattern.Pattern, success bool) {
	p.TransferUseCount++
	if success {
		p.TransferSuccessCount++
		p.PropagationTransferRate = clamp(p.PropagationTransferRate+0.01, 0.1, 1.0)
		p.PropagationDecayRate = clamp(p.PropagationDecayRate+0.005, 0.5, 0.99)
		p.PropagationThreshold = clamp(p.PropagationThreshold+0.005, 0.01, 0.5)
		p.PropagationBoostFactor = clamp(p.PropagationBoostFactor+0.01, 0.5, 3.0)
	} else {
		p.PropagationTransferRate = clamp(p.PropagationTransferRate-0.01, 0.1, 1.0)
		p.PropagationDecayRate = clamp(p.PropagationDecayRate-0.005, 0.5, 0.99)
		p.PropagationThreshold = clamp(p.PropagationThreshold-0.005, 0.01, 0.5)
		p.PropagationBoostFactor = clamp(p.PropagationBoostFactor-0.01, 0.5, 3.0)
	}
}

func updateSelectionScalars(p *pattern.Pattern, success bool) {
	p.SelectionUseCount++
	if success {
		p.SelectionSuccessCount++
		// success: trust the pattern's own prediction more.
		p.SelectionPatternFactor = clamp(p.SelectionPatternFactor+0.02, 0.05, 0.8)
		p.SelectionWeightFactor = clamp(p.SelectionWeightFactor-0.01, 0.1, 0.8)
	} else {
		// failure: lean back on raw weight/activation evidence.
		p.SelectionPatternFactor = clamp(p.SelectionPatternFactor-0.02, 0.05, 0.8)
		p.SelectionWeightFactor = clamp(p.SelectionWeightFactor+0.01, 0.1, 0.8)
		p.SelectionActivationFactor = clamp(p.SelectionActivationFactor+0.005, 0.05, 0.8)
	}
}

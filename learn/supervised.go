package learn

import (
	"melvingraph/common"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// SupervisedFeedback implements §4.11's supervised feedback: per output
// position, compare against target and apply match/mismatch updates to the
// contributing patterns' predictions and rules, strengthen every
// adjacent target pair as a sequential edge, teach END_MARKER prediction at
// the target's tail, run pattern backprop, and update the system error rate.
func (l *Learner) SupervisedFeedback(state *sysstate.State, output, target []common.NodeID, steps []StepRecord) {
	correct := 0
	n := len(output)
	if len(target) < n {
		n = len(target)
	}

	for i := 0; i < n; i++ {
		share := contributionShare(steps, i)
		if output[i] == target[i] {
			correct++
			l.onMatch(state, i, target, steps, share)
		} else {
			l.onMismatch(state, i, target, steps, share)
		}
	}

	for i := 0; i+1 < len(target); i++ {
		l.Edges.CreateOrStrengthen(target[i], target[i+1], state.LearningRate, false)
	}
	if len(target) > 0 {
		l.Edges.CreateOrStrengthen(target[len(target)-1], common.EndMarker, state.LearningRate, false)
		l.teachEndMarker(target)
	}

	l.backprop(steps, target)

	accuracy := 0.0
	if n > 0 {
		accuracy = float64(correct) / float64(n)
	}
	state.UpdateErrorRate(accuracy)
}

func contributionShare(steps []StepRecord, i int) float64 {
	if i >= len(steps) || steps[i].Result.Mass <= 0 {
		return 0.5
	}
	return clamp(steps[i].Result.Mass/(steps[i].Result.Mass+1), 0, 1)
}

func (l *Learner) onMatch(state *sysstate.State, i int, target []common.NodeID, steps []StepRecord, share float64) {
	if i >= len(steps) {
		return
	}
	for _, pc := range steps[i].Result.Patterns {
		p := l.Store.Get(pc.Pattern)
		if p == nil {
			continue
		}
		p.PredictionSuccesses++
		p.PredictionAttempts++
		if pc.Prediction == target[i] {
			amount := state.LearningRate * share * 0.5
			if amount > 1 {
				amount = 1
			}
			l.strengthenPrediction(pc.Pattern, p, target[i], amount)
			p.RuleConfidence = clamp(p.RuleConfidence+0.05, 0, 1)
			for j := range p.Rules {
				p.Rules[j].Strength = clamp(p.Rules[j].Strength+0.02, 0, 1)
			}
		}
	}
	if i > 0 {
		e := l.Edges.CreateOrStrengthen(target[i-1], target[i], state.LearningRate, false)
		if e != nil {
			e.SuccessCount++
		}
	}
}

func (l *Learner) onMismatch(state *sysstate.State, i int, target []common.NodeID, steps []StepRecord, share float64) {
	if i >= len(steps) {
		return
	}
	for _, pc := range steps[i].Result.Patterns {
		p := l.Store.Get(pc.Pattern)
		if p == nil {
			continue
		}
		p.PredictionAttempts++
		amount := state.LearningRate * share * 0.3
		weakenPrediction(p, pc.Prediction, amount)

		p.DynamicImportance *= 0.98
		p.AccumulatedMeaning *= 0.98
		p.RuleConfidence *= 0.98
		for j := range p.Rules {
			p.Rules[j].Strength *= 0.98
		}

		hasCorrect := false
		for _, t := range p.PredictedNodes {
			if t == target[i] {
				hasCorrect = true
				break
			}
		}
		if hasCorrect {
			l.strengthenPrediction(pc.Pattern, p, target[i], 0.05)
		} else {
			l.strengthenPrediction(pc.Pattern, p, target[i], 0.02)
		}
	}
}

// teachEndMarker makes every pattern matching the target's tail predict
// END_MARKER with a weight of at least 0.2.
func (l *Learner) teachEndMarker(target []common.NodeID) {
	l.Store.Each(func(h common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || len(target) < len(p.Sequence) {
			return
		}
		start := len(target) - len(p.Sequence)
		for i, sym := range p.Sequence {
			if sym == common.Wildcard {
				continue
			}
			if target[start+i] != sym {
				return
			}
		}
		hasEnd := false
		for i, t := range p.PredictedNodes {
			if t != common.EndMarker {
				continue
			}
			hasEnd = true
			if i < len(p.PredictionWeights) && p.PredictionWeights[i] < 0.2 {
				p.PredictionWeights[i] = 0.2
			}
		}
		if !hasEnd {
			l.strengthenPrediction(h, p, common.EndMarker, 0.2)
		}
	})
}

// backprop implements the pattern backprop step: every input weight gets the
// same delta eta*error (input activations are not part of the update), and
// bias += eta*error; all are clamped to [-1, 1].
func (l *Learner) backprop(steps []StepRecord, target []common.NodeID) {
	for i, s := range steps {
		if i >= len(target) {
			break
		}
		for _, pc := range s.Result.Patterns {
			p := l.Store.Get(pc.Pattern)
			if p == nil || len(p.InputWeights) == 0 {
				continue
			}
			errorSignal := 0.0
			if pc.Prediction == target[i] {
				errorSignal = 1 - p.Activation
			} else {
				errorSignal = -p.Activation
			}
			const eta = 0.05
			for j := range p.InputWeights {
				delta := eta * errorSignal
				p.InputWeights[j] = clamp(p.InputWeights[j]+delta, -1, 1)
			}
			p.Bias = clamp(p.Bias+eta*errorSignal, -1, 1)
		}
	}
}

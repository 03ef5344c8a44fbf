// Package learn implements the Learner: supervised feedback, self-supervised
// sequential-edge reinforcement and association learning, pattern and
// positional detection, learned-parameter updates, and pruning (§4.11), plus
// the universal negative apply_error_feedback signal (§6/§7).
package learn

import (
	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/selector"
	"melvingraph/sysstate"
)

// Learner owns no state of its own; it mutates the graph's structural
// components (nodes, edges, patterns) and the shared SystemState in
// response to feedback and post-episode learning passes.
type Learner struct {
	Nodes        *nodearr.NodeArray
	Edges        *edgelist.Lists
	PatternEdges *edgelist.Lists
	Store        *pattern.Store
	PortOf       pattern.PortOf
}

// StepRecord is one emitted position's selection result, carried from the
// EpisodeDriver's emit loop into the post-loop Learner pass for credit
// assignment.
type StepRecord struct {
	Emitted common.NodeID
	Result  selector.Result
}

// PostEpisode runs the complete post-loop learning pass of §4.9 step 8:
// supervised updates (if target is non-nil), self-supervised sequential-edge
// reinforcement, hierarchical and co-occurrence validation, pattern and
// positional detection, and learned-parameter updates for every active
// pattern. A nil target marks a generation-mode episode, in which
// self-supervised reinforcement covers the output as well as the input.
func (l *Learner) PostEpisode(state *sysstate.State, input, output, target []common.NodeID, steps []StepRecord, ambientContext common.ContextVector, port common.Port, inputHistory [][]common.NodeID) {
	if target != nil {
		l.SupervisedFeedback(state, output, target, steps)
	}

	l.SelfSupervisedSequential(state, input, output, target == nil)
	l.ValidateHierarchy()
	l.ValidateCoOccurrence(output)
	l.VerifyPredictions(output)

	l.DetectSequentialPatterns(state.ErrorRate, input, ambientContext, port)
	l.DetectPositionalPatterns(inputHistory, ambientContext, port)

	l.UpdateLearnedParameters(state, target, output)
	l.Prune()
}

// ApplyErrorFeedback implements the universal negative signal exposed by
// §6's apply_error_feedback: it raises the system error rate and uniformly
// weakens the patterns and edges that most recently contributed to output,
// without requiring a target sequence.
func (l *Learner) ApplyErrorFeedback(state *sysstate.State, magnitude float64, steps []StepRecord) {
	state.ApplyErrorFeedback(magnitude)
	for _, s := range steps {
		for _, pc := range s.Result.Patterns {
			p := l.Store.Get(pc.Pattern)
			if p == nil {
				continue
			}
			weakenPrediction(p, pc.Prediction, magnitude*0.3)
			p.DynamicImportance *= 1 - magnitude*0.2
			p.AccumulatedMeaning *= 1 - magnitude*0.2
			p.RuleConfidence *= 1 - magnitude*0.2
			for i := range p.Rules {
				p.Rules[i].Strength *= 1 - magnitude*0.2
			}
		}
		for _, ec := range s.Result.Edges {
			e := l.Edges.Find(ec.From, ec.To)
			if e != nil {
				e.Weight *= common.Weight(1 - magnitude*0.3)
				if e.Weight < 0 {
					e.Weight = 0
				}
			}
		}
	}
}

func weakenPrediction(p *pattern.Pattern, target common.NodeID, amount float64) {
	for i, t := range p.PredictedNodes {
		if t != target || i >= len(p.PredictionWeights) {
			continue
		}
		p.PredictionWeights[i] -= amount
		if p.PredictionWeights[i] < 0 {
			p.PredictionWeights[i] = 0
		}
	}
}

// strengthenPrediction increases an existing prediction weight for target,
// or appends a new prediction with a small initial weight if none exists.
// handle is used to keep the store's predicted-by index current after a
// new prediction is appended.
func (l *Learner) strengthenPrediction(handle common.PatternHandle, p *pattern.Pattern, target common.NodeID, amount float64) {
	for i, t := range p.PredictedNodes {
		if t != target {
			continue
		}
		if i < len(p.PredictionWeights) {
			p.PredictionWeights[i] += amount
			if p.PredictionWeights[i] > 1 {
				p.PredictionWeights[i] = 1
			}
			return
		}
	}
	p.PredictedNodes = append(p.PredictedNodes, target)
	p.PredictionWeights = append(p.PredictionWeights, clamp(amount, 0, 1))
	l.Store.RebuildPredictingIndex(handle)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

package selector

import (
	"math"

	"melvingraph/common"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// scorePatterns computes the pattern-score component: sum over patterns
// matching the appropriate context (output tail if output non-empty, else
// input) and predicting node n of
// strength*activation*pred_weight*relative_influence*meaning_boost*
// hierarchy_boost*success_boost*novelty_penalty.
func (sel *Selector) scorePatterns(scores *scoreSet, state *sysstate.State, input, output []common.NodeID, useOutputContext bool, ambientContext common.ContextVector, noveltyPenalty float64) {
	ctx := input
	if useOutputContext {
		ctx = output
	}

	sel.Store.Each(func(h common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || p.Activation <= 0 {
			return
		}
		if !matchesTail(p, ctx, sel.PortOf, ambientContext) {
			return
		}

		relativeInfluence := 1.0 / float64(1+competingPredictorCount(sel.Store, p))
		meaningBoost := 1 + math.Log1p(p.AccumulatedMeaning)/10
		hierarchyBoost := 1.0 / float64(1+p.ChainDepth)
		successBoost := 1 + p.UtilityRate()

		for i, target := range p.PredictedNodes {
			weight := 0.0
			if i < len(p.PredictionWeights) {
				weight = p.PredictionWeights[i]
			}
			score := p.Strength * p.Activation * weight * relativeInfluence * meaningBoost * hierarchyBoost * successBoost * noveltyPenalty
			if score <= 0 {
				continue
			}
			idx := targetIndex(target)
			scores.pattern[idx] += score
			scores.patternContrib[idx] = append(scores.patternContrib[idx], PatternContribution{
				Pattern:    h,
				Prediction: target,
				Weight:     weight,
			})
		}
	})
}

// targetIndex maps a NodeID (byte or EndMarker) onto the fixed-size score
// array; EndMarker lives at index 257, bytes at their own value.
func targetIndex(id common.NodeID) int {
	if id == common.EndMarker {
		return int(common.EndMarker)
	}
	return int(id)
}

func matchesTail(p *pattern.Pattern, ctx []common.NodeID, portOf pattern.PortOf, ambient common.ContextVector) bool {
	if len(ctx) < len(p.Sequence) {
		return false
	}
	start := len(ctx) - len(p.Sequence)
	return pattern.Match(p, ctx, start, portOf, ambient)
}

func competingPredictorCount(store *pattern.Store, p *pattern.Pattern) int {
	seen := map[common.PatternHandle]bool{}
	count := 0
	for _, target := range p.PredictedNodes {
		for _, h := range store.Predicting(target) {
			op := store.Get(h)
			if op == nil || !op.Active || op == p || seen[h] {
				continue
			}
			seen[h] = true
			count++
		}
	}
	return count
}

// scoreEdges computes the edge-score component: from edges out of the last
// output node (or out of input nodes when output is empty),
// relative_weight*(1+log(1+use)/usage_div)*(base+success_rate)*
// novelty_penalty, with an extra direct-connection boost on first emission.
func (sel *Selector) scoreEdges(scores *scoreSet, state *sysstate.State, input, output []common.NodeID, firstEmission bool, noveltyPenalty float64) {
	sources := sourceNodesForEdgeScore(input, output)
	const usageDiv = 10.0
	const base = 0.2

	for _, from := range sources {
		for _, e := range sel.Edges.Out(from) {
			if !e.Active {
				continue
			}
			rel := sel.Edges.RelativeWeight(from, e)
			successRate := 0.0
			if e.UseCount > 0 {
				successRate = float64(e.SuccessCount) / float64(e.UseCount)
			}
			score := rel * (1 + math.Log1p(float64(e.UseCount))/usageDiv) * (base + successRate) * noveltyPenalty
			if firstEmission && isInputNode(input, from) {
				score *= 1.5 // direct-connection boost on the first emission
			}
			if score <= 0 || !e.ToID.IsByte() {
				continue
			}
			idx := targetIndex(e.ToID)
			scores.edge[idx] += score
			scores.edgeContrib[idx] = append(scores.edgeContrib[idx], EdgeContribution{From: from, To: e.ToID})
		}
	}
}

func sourceNodesForEdgeScore(input, output []common.NodeID) []common.NodeID {
	if len(output) > 0 {
		return []common.NodeID{output[len(output)-1]}
	}
	return input
}

func isInputNode(input []common.NodeID, id common.NodeID) bool {
	for _, in := range input {
		if in == id {
			return true
		}
	}
	return false
}

// scoreContext computes the position-aware context-score component:
// first-emission favors the input sequence's start byte; continuation
// favors the byte at position len(output) of the input; mere presence
// anywhere in the input gives a moderate boost.
func (sel *Selector) scoreContext(scores *scoreSet, input, output []common.NodeID, firstEmission bool) {
	if len(input) == 0 {
		return
	}

	for _, b := range input {
		scores.context[targetIndex(b)] += 0.3 // presence-in-input moderate boost
	}

	if firstEmission {
		scores.context[targetIndex(input[0])] += 1.0
		return
	}

	pos := len(output)
	if pos < len(input) {
		scores.context[targetIndex(input[pos])] += 1.0
	}
}

// scoreActivation computes the activation-score component: node activation
// normalized by the maximum activation across nodes, with an echo penalty on
// input nodes that adapts to the learning rate and error rate.
func (sel *Selector) scoreActivation(scores *scoreSet, state *sysstate.State, input []common.NodeID) {
	var maxActivation float64
	sel.Nodes.Each(func(_ common.NodeID, n *nodearr.Node) {
		if float64(n.Activation) > maxActivation {
			maxActivation = float64(n.Activation)
		}
	})

	echoPenalty := 1 - clamp01(0.5*state.LearningRate+0.3*state.ErrorRate)

	sel.Nodes.Each(func(id common.NodeID, n *nodearr.Node) {
		score := 0.0
		if maxActivation > 0 {
			score = float64(n.Activation) / maxActivation
		}
		if isInputNode(input, id) {
			score *= echoPenalty
		}
		scores.activation[targetIndex(id)] = score
	})
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

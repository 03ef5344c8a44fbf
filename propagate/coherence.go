package propagate

import (
	"math"

	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// CoherencePropagator implements the alternative fused propagation head of
// §4.10: a single pass that computes a relative coherence per candidate edge
// from four independently-scaled signals and amplifies or attenuates
// transfer accordingly, returning the single most-activated candidate
// symbol. It is a standalone alternative to the PatternPropagator +
// EdgePropagator two-phase head; the EpisodeDriver picks one per episode via
// HostConfig.PropagationHead (§9 Open Question #2) and this head never runs
// concurrently with the other.
type CoherencePropagator struct {
	Nodes *nodearr.NodeArray
	Edges *edgelist.Lists
	Store *pattern.Store
}

// Candidate is one scored output of a coherence-propagation step.
type Candidate struct {
	Target     common.NodeID
	Coherence  float64
	Activation float64
}

// Step evaluates every candidate edge out of active nodes, scores it by
// relative coherence, and returns the single most-activated candidate (by
// post-coherence activation), excluding input nodes and the most recently
// emitted output node (to discourage immediate echo/repeat). ok is false if
// no candidate was found.
func (cp *CoherencePropagator) Step(state *sysstate.State, input, output []common.NodeID) (best Candidate, ok bool) {
	recentOutput := common.NodeID(-1)
	if len(output) > 0 {
		recentOutput = output[len(output)-1]
	}
	isInput := make(map[common.NodeID]bool, len(input))
	for _, id := range input {
		isInput[id] = true
	}

	avg := cp.Nodes.AverageActivation()
	floor := common.Activation(0.1 * float64(avg))

	bestScore := -1.0
	found := false

	cp.Nodes.Each(func(id common.NodeID, n *nodearr.Node) {
		if n.Activation < floor {
			return
		}
		for _, e := range cp.Edges.Out(id) {
			if !e.Active {
				continue
			}
			target := e.ToID
			if isInput[target] || target == recentOutput {
				continue
			}

			patternSupport := cp.patternSupportSignal(target)
			contextFit := cp.contextFitSignal(id, e)
			sequenceCoherence := cp.sequenceCoherenceSignal(e)
			generalization := cp.generalizationSignal(id, target, input)

			coherence := blend(patternSupport, contextFit, sequenceCoherence, generalization)

			multiplier := 0.1
			if coherence > 0.5 {
				multiplier = 1 + coherence // up to 2x at coherence==1
			} else {
				multiplier = 0.1 + 1.8*coherence // scales 0.1..1.0 as coherence approaches 0.5
			}

			amount := float64(n.Activation) * multiplier * float64(e.Weight)
			if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
				continue
			}
			if amount > bestScore {
				bestScore = amount
				best = Candidate{Target: target, Coherence: coherence, Activation: amount}
				found = true
			}
		}
	})

	endScore := cp.endMarkerCoherence(output)
	if endScore > bestScore {
		best = Candidate{Target: common.EndMarker, Coherence: 1, Activation: endScore}
		found = true
	}

	return best, found
}

func (cp *CoherencePropagator) patternSupportSignal(target common.NodeID) float64 {
	best := 0.0
	for _, h := range cp.Store.Predicting(target) {
		p := cp.Store.Get(h)
		if p == nil || !p.Active {
			continue
		}
		if s := p.Activation * p.Strength; s > best {
			best = s
		}
	}
	return clamp(best, 0, 1)
}

func (cp *CoherencePropagator) contextFitSignal(from common.NodeID, e *edgelist.Edge) float64 {
	if e.ContextNode == from {
		return 1
	}
	if e.ContextNode == -1 {
		return 0.5
	}
	return 0.2
}

func (cp *CoherencePropagator) sequenceCoherenceSignal(e *edgelist.Edge) float64 {
	if e.UseCount == 0 {
		return 0
	}
	return clamp(float64(e.SuccessCount)/float64(e.UseCount), 0, 1)
}

func (cp *CoherencePropagator) generalizationSignal(from, target common.NodeID, input []common.NodeID) float64 {
	best := 0.0
	for _, h := range cp.Store.Containing(from) {
		p := cp.Store.Get(h)
		if p == nil || !p.Active {
			continue
		}
		hasWildcard := false
		for _, s := range p.Sequence {
			if s == common.Wildcard {
				hasWildcard = true
				break
			}
		}
		if !hasWildcard {
			continue
		}
		for i, pred := range p.PredictedNodes {
			if pred != target {
				continue
			}
			w := 0.0
			if i < len(p.PredictionWeights) {
				w = p.PredictionWeights[i]
			}
			if w > best {
				best = w
			}
		}
	}
	return clamp(best, 0, 1)
}

// blend combines four [0,1] signals via an adaptive mix of geometric and
// arithmetic mean, weighted by how much the signals agree with each other
// (low variance -> trust the geometric mean more; high variance -> fall back
// toward the arithmetic mean, which is more forgiving of one dissenting
// signal).
func blend(signals ...float64) float64 {
	n := float64(len(signals))
	var arithSum, geoSum float64
	for _, s := range signals {
		arithSum += s
		geoSum += math.Log(s + 1e-9)
	}
	arith := arithSum / n
	geo := math.Exp(geoSum / n)

	mean := arith
	var variance float64
	for _, s := range signals {
		d := s - mean
		variance += d * d
	}
	variance /= n
	agreement := 1 - clamp(variance*4, 0, 1) // low variance -> agreement near 1

	return agreement*geo + (1-agreement)*arith
}

// endMarkerCoherence scores END_MARKER as a pseudo-candidate: the sum, over
// patterns matching the output tail, of strength*activation*pred_weight over
// predictions equal to END_MARKER.
func (cp *CoherencePropagator) endMarkerCoherence(output []common.NodeID) float64 {
	total := 0.0
	cp.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || len(output) < len(p.Sequence) {
			return
		}
		start := len(output) - len(p.Sequence)
		match := true
		for i, sym := range p.Sequence {
			if sym == common.Wildcard {
				continue
			}
			if output[start+i] != sym {
				match = false
				break
			}
		}
		if !match {
			return
		}
		for i, pred := range p.PredictedNodes {
			if pred != common.EndMarker {
				continue
			}
			w := 0.0
			if i < len(p.PredictionWeights) {
				w = p.PredictionWeights[i]
			}
			total += p.Strength * p.Activation * w
		}
	})
	return total
}

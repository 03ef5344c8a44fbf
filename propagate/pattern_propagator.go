// Package propagate implements wave propagation: the pattern-level
// activation pass (§4.6), the node-level edge-weighted activation transfer
// pass with path-quality scoring (§4.7), and the alternative fused
// coherence-based head (§4.10).
package propagate

import (
	"math"

	"melvingraph/common"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// NodeActivation is the signature of a node-activation lookup. No function in
// this package takes one: the pattern forward pass is handed avgOutgoing as a
// pattern.OutgoingAverage instead.
type NodeActivation func(id common.NodeID) float64

// PatternPropagator runs the pattern-level activation pass of §4.6.
type PatternPropagator struct {
	Store      *pattern.Store
	Nodes      *nodearr.NodeArray
	PatternEdges PatternEdgeSource
	PortOf     pattern.PortOf
}

// PatternEdgeSource abstracts the pattern-to-pattern edge list so this
// package need not import edgelist directly at the type level (it still
// does, via the concrete implementation wired by the graph package).
type PatternEdgeSource interface {
	Neighbors(from common.PatternHandle) []common.PatternHandle
	Weight(from, to common.PatternHandle) float64
}

// Step runs one pattern-propagation step against the current input and
// output buffers.
func (pp *PatternPropagator) Step(state *sysstate.State, input, output []common.NodeID, ambientContext common.ContextVector) {
	pp.Store.Each(func(h common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || p.Strength <= 0 {
			return
		}

		pp.resetFiringMemoization(p, state, output)

		matched, matchedIntoInput, seqLen := pp.findMatch(p, input, output, ambientContext)
		if !matched {
			p.Activation *= 0.95
			return
		}

		inputActivation := make([]float64, len(p.Sequence))
		for i, sym := range p.Sequence {
			if sym.IsByte() {
				inputActivation[i] = float64(pp.Nodes.Get(sym).Activation)
			}
		}
		p.ForwardPass(inputActivation, pp.avgOutgoing, matchedIntoInput, seqLen)

		pp.applyLocalCompetition(h, p, state)
		pp.spreadToNodes(p, state)
		pp.spreadToPatterns(h, p, state)
		pp.spreadThroughPatternEdges(h, p)
		pp.updateImportanceAndRules(p)
		pp.applyAssociations(h, p)
		pp.applyHierarchicalFeedback(p)
		pp.evaluateRules(p)
		pp.suppressCompetitors(h, p)

		p.Activation = clampActivation(p.Activation * (0.95 + 0.02*state.CompetitionPressure))

		p.HasFired = true
		p.LastFiredStep = state.Step
		pp.Store.MarkActiveThisStep(h)
	})
}

func clampActivation(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 1.0
	}
	if a > 10 {
		return 10
	}
	if a < 0 {
		return 0
	}
	return a
}

// avgOutgoing is the OutgoingAverage the forward pass seeds input weights
// from. It returns the node's current activation; the node's outgoing edge
// weights are not read.
func (pp *PatternPropagator) avgOutgoing(id common.NodeID) float64 {
	if !id.IsByte() {
		return 0
	}
	n := pp.Nodes.Get(id)
	return float64(n.Activation)
}

// resetFiringMemoization clears a pattern's fired-predictions bitmask once
// more than 5 steps have elapsed since its last fire. The output argument is
// not consulted: growth of the output since the last fire does not reset the
// bitmask.
func (pp *PatternPropagator) resetFiringMemoization(p *pattern.Pattern, state *sysstate.State, output []common.NodeID) {
	if !p.HasFired {
		return
	}
	if state.Step-p.LastFiredStep > 5 {
		p.FiredPredictions = 0
		p.HasFired = false
	}
}

// findMatch prefers the tail of the output buffer; otherwise it searches the
// input buffer for the best-scoring start position (positional relevance
// plus a length bonus). Returns whether a match was found, whether it
// matched into the input buffer, and the length against which it matched
// (for the forward pass's context boost).
func (pp *PatternPropagator) findMatch(p *pattern.Pattern, input, output []common.NodeID, ambientContext common.ContextVector) (matched bool, intoInput bool, refLen int) {
	if len(output) >= len(p.Sequence) {
		start := len(output) - len(p.Sequence)
		if pattern.Match(p, output, start, pp.PortOf, ambientContext) {
			return true, false, len(output)
		}
	}

	bestScore := -1.0
	bestStart := -1
	maxStart := len(input) - len(p.Sequence)
	if p.IsPositional() {
		maxStart = 0
	}
	for start := 0; start <= maxStart; start++ {
		if !pattern.Match(p, input, start, pp.PortOf, ambientContext) {
			continue
		}
		score := positionalRelevance(start, len(input)) + lengthBonus(len(p.Sequence))
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
	}
	if bestStart >= 0 {
		return true, true, len(input)
	}
	return false, false, 0
}

func positionalRelevance(start, inputLen int) float64 {
	if inputLen == 0 {
		return 0
	}
	return 1 - float64(start)/float64(inputLen)
}

func lengthBonus(patternLen int) float64 {
	return math.Log1p(float64(patternLen)) / 10
}

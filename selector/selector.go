// Package selector implements §4.8's per-step output selection: four
// normalized score components (pattern, edge, context, activation) combined
// with weights that are themselves functions of the current learning and
// error rate, END_MARKER competition, novelty-aware attenuation, selection
// confidence, and per-position contribution tracking for the Learner's
// credit assignment.
package selector

import (
	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// Outcome tags the result of a selection step, replacing the source's
// ad-hoc sentinel-value idiom (Design Notes).
type Outcome int

const (
	// NoSelection means no byte node scored above zero this step; the driver
	// ends the episode after 10 consecutive NoSelection steps.
	NoSelection Outcome = iota
	// Selected means a real byte node was chosen.
	Selected
	// SelectedEnd means END_MARKER won the competition; the episode stops.
	SelectedEnd
)

// PatternContribution records one pattern's contribution to the winning
// symbol, consumed by the Learner for credit assignment.
type PatternContribution struct {
	Pattern    common.PatternHandle
	Prediction common.NodeID
	Weight     float64
}

// EdgeContribution records one edge's contribution to the winning symbol.
type EdgeContribution struct {
	From common.NodeID
	To   common.NodeID
}

// Result is the outcome of one selection step.
type Result struct {
	Outcome    Outcome
	Node       common.NodeID
	Confidence float64

	Patterns []PatternContribution
	Edges    []EdgeContribution
	Mass     float64
}

// Selector scores and picks the next emitted symbol per step.
type Selector struct {
	Nodes  *nodearr.NodeArray
	Edges  *edgelist.Lists
	Store  *pattern.Store
	PortOf pattern.PortOf
}

type scoreSet struct {
	pattern    [258]float64 // indices 0-255 bytes, 256 unused, 257 = end marker
	edge       [258]float64
	context    [258]float64
	activation [258]float64

	patternContrib [258][]PatternContribution
	edgeContrib    [258][]EdgeContribution
}

// Step runs one selection pass. input is the episode's injected byte
// sequence; output is what has been emitted so far this episode;
// ambientContext is the current context vector (§6 set_context).
func (sel *Selector) Step(state *sysstate.State, input, output []common.NodeID, ambientContext common.ContextVector) Result {
	useOutputContext := len(output) > 0
	firstEmission := len(output) == 0

	memoryStrength := sel.noveltyMemoryStrength(input)
	noveltyThreshold := 0.2 + 0.3*state.ExplorationPressure
	noveltyPenalty := 1.0
	if memoryStrength < noveltyThreshold {
		noveltyPenalty = 1 - memoryStrength
	}

	scores := &scoreSet{}
	sel.scorePatterns(scores, state, input, output, useOutputContext, ambientContext, noveltyPenalty)
	sel.scoreEdges(scores, state, input, output, firstEmission, noveltyPenalty)
	sel.scoreContext(scores, input, output, firstEmission)
	sel.scoreActivation(scores, state, input)

	wPattern, wEdge, wContext, wActivation := weights(state.LearningRate, state.ErrorRate)

	combined := make([]float64, 258)
	maxPattern := maxOf(scores.pattern[:256])
	maxEdge := maxOf(scores.edge[:256])
	maxContext := maxOf(scores.context[:256])
	maxActivation := maxOf(scores.activation[:256])

	for i := 0; i < 256; i++ {
		p := normalize(scores.pattern[i], maxPattern)
		e := normalize(scores.edge[i], maxEdge)
		c := normalize(scores.context[i], maxContext)
		a := normalize(scores.activation[i], maxActivation)
		combined[i] = wPattern*p + wEdge*e + wContext*c + wActivation*a
	}

	endCombined := wPattern*normalize(scores.pattern[common.EndMarker], maxPattern) +
		wEdge*normalize(scores.edge[common.EndMarker], maxEdge)

	bestIdx, best, secondBest := argmax(combined[:256])

	if endCombined > best {
		return Result{
			Outcome:    SelectedEnd,
			Node:       common.EndMarker,
			Confidence: confidence(endCombined, best),
			Mass:       scores.pattern[common.EndMarker] + scores.edge[common.EndMarker],
		}
	}

	if best <= 0 {
		return Result{Outcome: NoSelection}
	}

	node := common.NodeID(bestIdx)
	return Result{
		Outcome:    Selected,
		Node:       node,
		Confidence: confidence(best, secondBest),
		Patterns:   scores.patternContrib[bestIdx],
		Edges:      scores.edgeContrib[bestIdx],
		Mass:       scores.pattern[bestIdx] + scores.edge[bestIdx],
	}
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func normalize(x, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return x / max
}

// argmax returns the index and value of the best score, plus the value of
// the second-best, breaking ties by the lowest index (deterministic
// iteration order, §8 invariant #5).
func argmax(scores []float64) (idx int, best, second float64) {
	idx = -1
	best = -1
	second = -1
	for i, s := range scores {
		if s > best {
			second = best
			best = s
			idx = i
		} else if s > second {
			second = s
		}
	}
	if second < 0 {
		second = 0
	}
	return idx, best, second
}

func confidence(best, second float64) float64 {
	const eps = 1e-9
	return (best - second) / (best + eps)
}

// weights implements §4.8's "weights that are themselves functions of the
// current learning_rate and error_rate", re-normalized to sum to 1.
func weights(learningRate, errorRate float64) (pattern, edge, context, activation float64) {
	pattern = 0.35 + 0.2*(1-errorRate)
	edge = 0.30 + 0.1*learningRate
	context = 0.20 + 0.1*errorRate
	activation = 0.15
	total := pattern + edge + context + activation
	return pattern / total, edge / total, context / total, activation / total
}

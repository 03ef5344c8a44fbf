package graph

import (
	"math"

	"melvingraph/common"
	"melvingraph/learn"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/selector"
)

const (
	maxStepsTraining   = 1000
	maxStepsGeneration = 200
	stateIntervalTrain = 1
	stateIntervalGen   = 5
	emergencyOutputCap = 10000
	minOutputLength    = 1
	maxConsecutiveFail = 10
)

// RunEpisode implements §6's run_episode / §4.9's EpisodeDriver: resets
// volatile state, injects input, runs the propagation-selection-emit loop
// until a self-regulating stop condition fires, then runs the post-loop
// Learner pass. A nil target runs the episode in generation mode; a non-nil
// target runs it in supervised/training mode.
func (g *Graph) RunEpisode(input []byte, target []byte) error {
	if len(input) == 0 {
		if target != nil {
			return common.NewError(common.InvalidArgument, "zero-length input with a non-nil target", nil)
		}
		g.output = nil
		g.steps = nil
		return nil
	}

	inputIDs := toNodeIDs(input)
	var targetIDs []common.NodeID
	if target != nil {
		targetIDs = toNodeIDs(target)
	}

	g.resetVolatile()
	g.State.PushInputHistory(inputIDs)
	g.input = inputIDs
	g.injectInput(inputIDs, 1.5, 0.5)
	g.connectToSimilarPatterns(inputIDs)
	g.recomputeState()
	g.injectInput(inputIDs, 1.0, 0.0) // re-seed to dominate the first propagation step

	maxSteps := maxStepsGeneration
	interval := stateIntervalGen
	if target != nil {
		maxSteps = maxStepsTraining
		interval = stateIntervalTrain
	}

	consecutiveFail := 0
	for step := 0; step < maxSteps; step++ {
		if step%interval == 0 {
			g.recomputeState()
		}
		g.State.Step = common.Step(step)

		result := g.propagateAndSelect()
		g.guardNumerics()

		if result.Outcome == selector.SelectedEnd {
			break
		}
		if result.Outcome == selector.NoSelection {
			consecutiveFail++
			if consecutiveFail >= maxConsecutiveFail {
				break
			}
			continue
		}
		consecutiveFail = 0

		g.emit(result)
		if len(g.output) >= emergencyOutputCap {
			break
		}

		g.decayInputProportional()

		if g.shouldStop(target, targetIDs) {
			break
		}
	}

	g.postLearn(inputIDs, targetIDs)
	return nil
}

func toNodeIDs(bs []byte) []common.NodeID {
	out := make([]common.NodeID, len(bs))
	for i, b := range bs {
		out[i] = common.NodeID(b)
	}
	return out
}

func (g *Graph) resetVolatile() {
	g.output = nil
	g.steps = nil
	g.Nodes.ResetVolatile()
	g.Store.ResetFiring()
	g.State.ResetVolatile()
}

func (g *Graph) injectInput(ids []common.NodeID, start, fall float64) {
	n := len(ids)
	for i, id := range ids {
		activation := start
		if n > 1 {
			activation = start - fall*float64(i)/float64(n)
		}
		g.Nodes.SetActivation(id, common.Activation(activation), g.inputPort)
	}
}

// connectToSimilarPatterns implements §4.9 step 4: for every existing
// wildcard-bearing pattern that matches the new input, materialize edges
// from the last input symbol to each confident prediction and bump the
// pattern's attempt counter.
func (g *Graph) connectToSimilarPatterns(input []common.NodeID) {
	if len(input) == 0 {
		return
	}
	last := input[len(input)-1]
	g.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || !hasWildcard(p) {
			return
		}
		if !matchesAnywhere(p, input, g.sel.PortOf, g.context) {
			return
		}
		p.PredictionAttempts++
		for i, pred := range p.PredictedNodes {
			if !pred.IsByte() {
				continue
			}
			weight := 0.0
			if i < len(p.PredictionWeights) {
				weight = p.PredictionWeights[i]
			}
			if weight < 0.5 {
				continue
			}
			g.Edges.CreateOrStrengthen(last, pred, g.State.LearningRate, false)
		}
	})
}

func hasWildcard(p *pattern.Pattern) bool {
	for _, s := range p.Sequence {
		if s == common.Wildcard {
			return true
		}
	}
	return false
}

func matchesAnywhere(p *pattern.Pattern, s []common.NodeID, portOf pattern.PortOf, ctx common.ContextVector) bool {
	maxStart := len(s) - len(p.Sequence)
	if p.IsPositional() {
		maxStart = 0
	}
	for start := 0; start <= maxStart; start++ {
		if pattern.Match(p, s, start, portOf, ctx) {
			return true
		}
	}
	return false
}

func (g *Graph) recomputeState() {
	g.State.Recompute(
		g.Nodes.AverageActivation(),
		g.Nodes.AverageThreshold(),
		g.Nodes.TotalActivation(),
		g.Nodes.ActiveCount(0.01),
		g.Edges.ActiveCount(),
		g.Store.ActiveCount(),
		len(g.output),
		len(g.input),
	)
}

// propagateAndSelect runs one step of whichever propagation head is
// configured and returns the resulting selection. The classic head runs the
// full pattern+edge propagation pair and defers the selection decision to
// the Selector (§4.6-§4.8); the coherence head folds propagation and
// selection into the single fused pass of §4.10 and its own winning
// candidate is the selection.
func (g *Graph) propagateAndSelect() selector.Result {
	g.Store.ClearActiveSet()
	g.patternProp.Step(g.State, g.input, g.output, g.context)

	if g.Opts.Head == HeadCoherence {
		cand, ok := g.coherenceProp.Step(g.State, g.input, g.output)
		if !ok {
			return selector.Result{Outcome: selector.NoSelection}
		}
		outcome := selector.Selected
		if cand.Target == common.EndMarker {
			outcome = selector.SelectedEnd
		}
		return selector.Result{Outcome: outcome, Node: cand.Target, Confidence: cand.Coherence, Mass: cand.Activation}
	}

	g.edgeProp.LastOutputNode = lastOf(g.output)
	g.edgeProp.HasLastOutput = len(g.output) > 0
	g.edgeProp.InputNodes = g.input
	g.edgeProp.AllowAntiparallelEdges = g.Opts.AllowAntiparallelEdges
	g.edgeProp.Step(g.State, g.context)
	return g.sel.Step(g.State, g.input, g.output, g.context)
}

func lastOf(xs []common.NodeID) common.NodeID {
	if len(xs) == 0 {
		return -1
	}
	return xs[len(xs)-1]
}

func (g *Graph) emit(result selector.Result) {
	g.output = append(g.output, result.Node)
	g.steps = append(g.steps, learn.StepRecord{Emitted: result.Node, Result: result})
	g.State.PushOutputSymbol(float64(result.Node))
	g.State.SelectionConfidence = result.Confidence

	n := g.Nodes.Get(result.Node)
	n.FireCount++
	n.Adaptation += 0.3 * (0.8 - n.Adaptation)

	g.boostSubsequentMembers(result.Node)
}

// boostSubsequentMembers implements the recurrent support of §4.9's emit
// step: each active pattern containing the emitted node adds
// activation*0.1/distance to every later byte member of its sequence, where
// distance is the member's position past the emitted one. The members'
// Adaptation (fatigue) is not considered.
func (g *Graph) boostSubsequentMembers(emitted common.NodeID) {
	for _, h := range g.Store.Containing(emitted) {
		p := g.Store.Get(h)
		if p == nil || !p.Active || p.Activation <= 0 {
			continue
		}
		pos := -1
		for i, s := range p.Sequence {
			if s == emitted {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}
		for i := pos + 1; i < len(p.Sequence); i++ {
			target := p.Sequence[i]
			if !target.IsByte() {
				continue
			}
			boost := p.Activation * 0.1 / float64(i-pos)
			g.Nodes.AddActivation(target, common.Activation(boost), emitted, g.Nodes.Get(target).SourcePort)
		}
	}
}

func (g *Graph) decayInputProportional() {
	if len(g.input) == 0 {
		return
	}
	progress := float64(len(g.output)) / float64(len(g.input))
	if progress > 1 {
		progress = 1
	}
	decay := common.Activation(1 - 0.1*progress)
	for _, id := range g.input {
		n := g.Nodes.Get(id)
		n.Activation *= decay
	}
}

func (g *Graph) shouldStop(target []byte, targetIDs []common.NodeID) bool {
	if g.State.SelectionConfidence < 0.01 && len(g.output) >= minOutputLength {
		return true
	}
	if g.Nodes.TotalActivation() < 0.005 {
		return true
	}
	if g.State.LoopPressure > 0.95 && len(g.output) > 3 {
		return true
	}
	if g.State.CompletionPressure > 0.9 && len(g.output) >= minOutputLength {
		return true
	}
	if target != nil && len(g.output) >= len(targetIDs) {
		return true
	}
	return false
}

func (g *Graph) guardNumerics() {
	g.Nodes.Each(func(_ common.NodeID, n *nodearr.Node) {
		if math.IsNaN(float64(n.Activation)) || math.Abs(float64(n.Activation)) > 1e6 {
			n.Activation = 100.0
		}
	})
	g.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if math.IsNaN(p.Activation) || p.Activation > 1e6 {
			p.Activation = 10.0
		}
		if math.IsNaN(p.AccumulatedMeaning) || p.AccumulatedMeaning > 1e6 {
			p.AccumulatedMeaning = 1.0
		}
	})
}

func (g *Graph) postLearn(inputIDs, targetIDs []common.NodeID) {
	g.learner.PostEpisode(g.State, inputIDs, g.output, targetIDs, g.steps, g.context, g.inputPort, g.State.InputHistory())
}

package propagate

import (
	"math"

	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// EdgePropagator runs the node-level wave-propagation pass of §4.7: path
// quality scoring, proportional activation transfer, temporal decay, and
// post-step Hebbian/pattern-implied edge creation.
type EdgePropagator struct {
	Nodes        *nodearr.NodeArray
	Edges        *edgelist.Lists
	PatternEdges *edgelist.Lists // pattern-to-pattern edges, keyed by PatternHandle cast to NodeID
	Store        *pattern.Store
	PortOf       pattern.PortOf

	// AllowAntiparallelEdges mirrors §9 Open Question #1: when false,
	// Hebbian creation refuses to create lo->hi if hi->lo already exists.
	// Defaults to the zero value (false) unless explicitly set true by the
	// caller; graph.Create wires this from Options.AllowAntiparallelEdges.
	AllowAntiparallelEdges bool

	// LastOutputNode and LastInputID support history-coherence and
	// Hebbian-target scoring; set by the caller before Step.
	LastOutputNode common.NodeID
	HasLastOutput  bool
	InputNodes     []common.NodeID
}

// Step runs one edge-propagation pass: path-quality-weighted transfer for
// every sufficiently-active node, followed by post-step structural updates
// (Hebbian creation, pattern-implied edges, pattern-pattern Hebbian edges,
// node dynamics, and pruning).
func (ep *EdgePropagator) Step(state *sysstate.State, ambientContext common.ContextVector) {
	avg := ep.Nodes.AverageActivation()
	floor := common.Activation(0.1 * float64(avg))

	activeThisStep := make([]common.NodeID, 0, 32)

	ep.Nodes.Each(func(id common.NodeID, n *nodearr.Node) {
		if n.Activation < floor {
			return
		}
		activeThisStep = append(activeThisStep, id)
		ep.propagateFrom(id, n, state, avg)
	})

	ep.createHebbianEdges(activeThisStep, state)
	ep.createPatternImpliedEdges(state)
	ep.createPatternPatternEdges()

	ep.Nodes.UpdateDynamics(avg, state.CompetitionPressure, state.LearningRate)
	ep.Nodes.Each(func(id common.NodeID, _ *nodearr.Node) {
		ep.Edges.Prune(id)
	})
}

func (ep *EdgePropagator) propagateFrom(id common.NodeID, n *nodearr.Node, state *sysstate.State, avg common.Activation) {
	edges := ep.Edges.Out(id)
	for _, e := range edges {
		if !e.Active || !e.ToID.IsByte() {
			continue
		}
		quality := ep.pathQuality(id, e, state)
		transferRate := ep.learnedTransferRate(e.ToID)
		amount := float64(n.Activation) * quality * transferRate

		if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			continue
		}
		ep.Nodes.AddActivation(e.ToID, common.Activation(amount), id, ep.Nodes.Get(e.ToID).SourcePort)

		if quality > 0.3 {
			e.UseCount++
		}
	}
	// Decay the source's current activation by 0.9. Nodes are visited in id
	// order against live values (no pre-step snapshot), so for a node visited
	// after one of its senders this decay also covers the activation it
	// received earlier in this same pass.
	n.Activation = common.Activation(float64(n.Activation) * 0.9)
}

// pathQuality computes the product of independently-evaluated factors
// described in §4.7 step 1, normalized and capped at 100x.
func (ep *EdgePropagator) pathQuality(from common.NodeID, e *edgelist.Edge, state *sysstate.State) float64 {
	information := ep.informationCarried(from, e)
	support := ep.patternSupport(e.ToID)
	coherence := ep.historyCoherence(e)
	predictive := ep.predictivePower(e.ToID, state)

	raw := information * (1 + support) * (1 + coherence) * (1 + predictive)
	normalized := raw / (1 + raw/100) // soft-normalize, capped effectively at 100x
	return normalized
}

func (ep *EdgePropagator) informationCarried(from common.NodeID, e *edgelist.Edge) float64 {
	usage := math.Log1p(float64(e.UseCount))
	base := float64(e.Weight) * usage
	strong := false
	for _, in := range ep.InputNodes {
		if in == from {
			strong = true
			break
		}
	}
	if strong {
		return base * 10
	}
	reachable := false
	for _, in := range ep.InputNodes {
		if in == e.ToID {
			reachable = true
			break
		}
	}
	if reachable {
		return base * 2
	}
	return base
}

func (ep *EdgePropagator) patternSupport(target common.NodeID) float64 {
	best := 0.0
	for _, h := range ep.Store.Predicting(target) {
		p := ep.Store.Get(h)
		if p == nil || !p.Active {
			continue
		}
		score := p.Activation * p.Strength
		if score > best {
			best = score
		}
	}
	return best
}

func (ep *EdgePropagator) historyCoherence(e *edgelist.Edge) float64 {
	if !ep.HasLastOutput || ep.LastOutputNode != e.ContextNode {
		return 0
	}
	return float64(e.Weight) * math.Log1p(float64(e.UseCount))
}

func (ep *EdgePropagator) predictivePower(target common.NodeID, state *sysstate.State) float64 {
	best := 0.0
	for _, h := range ep.Store.Predicting(target) {
		p := ep.Store.Get(h)
		if p == nil || !p.Active {
			continue
		}
		score := p.Strength * p.UtilityRate() * (1 - state.ErrorRate)
		if score > best {
			best = score
		}
	}
	return best
}

// learnedTransferRate returns the controlling pattern's
// PropagationTransferRate if an active pattern predicts target, else the
// spec's documented default of 0.5.
func (ep *EdgePropagator) learnedTransferRate(target common.NodeID) float64 {
	for _, h := range ep.Store.Predicting(target) {
		p := ep.Store.Get(h)
		if p != nil && p.Active && p.Activation > p.Threshold {
			return p.PropagationTransferRate
		}
	}
	return 0.5
}

// createHebbianEdges creates edges between pairs of currently active nodes,
// direction canonicalized by node id (lower -> higher). Both nodes must have
// activation of at least 0.5*(1-learning_rate), so a higher learning rate
// lowers the bar.
func (ep *EdgePropagator) createHebbianEdges(active []common.NodeID, state *sysstate.State) {
	threshold := common.Activation(0.5 * (1 - state.LearningRate))
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			if ep.Nodes.Get(a).Activation < threshold || ep.Nodes.Get(b).Activation < threshold {
				continue
			}
			if !ep.AllowAntiparallelEdges && ep.Edges.Find(hi, lo) != nil {
				continue
			}
			e := ep.Edges.CreateOrStrengthen(lo, hi, state.LearningRate, false)
			if e != nil {
				e.SetContextOnce(lo)
			}
		}
	}
}

// createPatternImpliedEdges materializes edges from the last pattern node to
// each predicted node with a prediction weight of at least 0.3.
func (ep *EdgePropagator) createPatternImpliedEdges(state *sysstate.State) {
	ep.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || len(p.Sequence) == 0 {
			return
		}
		last := p.Sequence[len(p.Sequence)-1]
		if !last.IsByte() {
			return
		}
		for i, target := range p.PredictedNodes {
			if !target.IsByte() {
				continue
			}
			weight := 0.0
			if i < len(p.PredictionWeights) {
				weight = p.PredictionWeights[i]
			}
			if weight < 0.3 {
				continue
			}
			ep.Edges.CreateOrStrengthen(last, target, state.LearningRate, false)
		}
	})
}

// createPatternPatternEdges creates bidirectional Hebbian pattern-to-pattern
// edges for co-active pattern pairs.
func (ep *EdgePropagator) createPatternPatternEdges() {
	if ep.PatternEdges == nil {
		return
	}
	active := ep.Store.ActiveSet()
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			pa, pb := ep.Store.Get(a), ep.Store.Get(b)
			if pa == nil || pb == nil || pa.Activation <= 0 || pb.Activation <= 0 {
				continue
			}
			ep.PatternEdges.CreateOrStrengthen(common.NodeID(a), common.NodeID(b), 0.1, true)
			ep.PatternEdges.CreateOrStrengthen(common.NodeID(b), common.NodeID(a), 0.1, true)
		}
	}
}

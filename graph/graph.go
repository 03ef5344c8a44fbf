// Package graph assembles the NodeArray, EdgeList, PatternStore, wave
// propagators, Selector, and Learner into the single MelvinGraph engine
// instance, and exposes the C-ABI-shaped surface of §6 as ordinary Go
// methods (no cgo): Create, SetInputPort, SetOutputPort, SetContext,
// RunEpisode, GetOutput, GetErrorRate, GetPatternCount, GetEdgeWeight,
// GetPatternInfo, GetPatternPredictions, ApplyErrorFeedback. save_brain and
// load_brain live in package persist, which depends on graph rather than the
// reverse; the CLI host wires them in as the Orchestrator's
// saveBrainFn/loadBrainFn.
package graph

import (
	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/learn"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/propagate"
	"melvingraph/selector"
	"melvingraph/sysstate"
)

// PropagationHead selects which wave-propagation algorithm EpisodeDriver
// runs per step (§9 Open Question #2: both heads are implemented, only one
// runs per episode).
type PropagationHead int

const (
	// HeadClassic runs PatternPropagator followed by EdgePropagator (§4.6,
	// §4.7). This is the default: it gives determinism parity with the
	// worked end-to-end scenarios of spec.md §8.
	HeadClassic PropagationHead = iota
	// HeadCoherence runs the fused coherence-based alternative (§4.10).
	HeadCoherence
)

// Options configures engine-level behavior that spec.md leaves as an
// implementation/host decision (the two Open Questions of §9), as opposed to
// HostConfig in package config, which configures the surrounding CLI host.
type Options struct {
	// AllowAntiparallelEdges mirrors §9 Open Question #1: the engine does
	// not forbid bidirectional node pairs by default. Set false to refuse
	// creating the reverse-direction Hebbian edge when the forward one
	// already exists.
	AllowAntiparallelEdges bool
	// Head selects the propagation algorithm; HeadClassic is the default.
	Head PropagationHead
}

// DefaultOptions returns the engine defaults: antiparallel edges allowed,
// classic two-phase propagation head. Create uses the Options it is given
// as-is, so a zero-value Options disallows antiparallel edges.
func DefaultOptions() Options {
	return Options{AllowAntiparallelEdges: true, Head: HeadClassic}
}

// Graph is the single MelvinGraph engine instance (spec.md's "Graph" in the
// C-ABI surface). One Graph is owned by one driver goroutine; it has no
// internal locks (§5).
type Graph struct {
	Nodes        *nodearr.NodeArray
	Edges        *edgelist.Lists
	PatternEdges *edgelist.Lists
	Store        *pattern.Store
	State        *sysstate.State

	Opts Options

	inputPort  common.Port
	outputPort common.Port
	context    common.ContextVector

	input  []common.NodeID
	output []common.NodeID
	steps  []learn.StepRecord

	patternProp   *propagate.PatternPropagator
	edgeProp      *propagate.EdgePropagator
	coherenceProp *propagate.CoherencePropagator
	sel           *selector.Selector
	learner       *learn.Learner
}

// Create returns a new, empty Graph ready for episodes, per §6's create().
// A faithful cgo-shaped implementation would return a null pointer on
// allocation failure (ResourceExhausted); since Go's runtime panics on OOM
// rather than returning nil, Create itself never fails.
func Create(opts Options) *Graph {
	g := &Graph{
		Nodes:        nodearr.New(),
		Edges:        edgelist.New(),
		PatternEdges: edgelist.New(),
		Store:        pattern.NewStore(),
		State:        sysstate.New(),
		Opts:         opts,
	}
	g.wire()
	return g
}

func (g *Graph) wire() {
	portOf := func(id common.NodeID) (common.Port, bool) {
		if !id.IsByte() {
			return 0, false
		}
		n := g.Nodes.Get(id)
		if !n.Exists {
			return 0, false
		}
		return n.SourcePort, true
	}

	g.patternProp = &propagate.PatternPropagator{
		Store:        g.Store,
		Nodes:        g.Nodes,
		PatternEdges: &propagate.PatternEdgeAdapter{Edges: g.PatternEdges},
		PortOf:       portOf,
	}
	g.edgeProp = &propagate.EdgePropagator{
		Nodes:                  g.Nodes,
		Edges:                  g.Edges,
		PatternEdges:           g.PatternEdges,
		Store:                  g.Store,
		PortOf:                 portOf,
		AllowAntiparallelEdges: g.Opts.AllowAntiparallelEdges,
	}
	g.coherenceProp = &propagate.CoherencePropagator{
		Nodes: g.Nodes,
		Edges: g.Edges,
		Store: g.Store,
	}
	g.sel = &selector.Selector{
		Nodes:  g.Nodes,
		Edges:  g.Edges,
		Store:  g.Store,
		PortOf: portOf,
	}
	g.learner = &learn.Learner{
		Nodes:        g.Nodes,
		Edges:        g.Edges,
		PatternEdges: g.PatternEdges,
		Store:        g.Store,
		PortOf:       portOf,
	}
}

// SetInputPort implements §6's set_input_port.
func (g *Graph) SetInputPort(port uint32) { g.inputPort = common.Port(port) }

// SetOutputPort implements §6's set_output_port.
func (g *Graph) SetOutputPort(port uint32) { g.outputPort = common.Port(port) }

// SetContext implements §6's set_context, replacing the ambient context
// vector used by pattern matching's cosine-similarity gate.
func (g *Graph) SetContext(ctx [16]float64) { g.context = common.ContextVector(ctx) }

// GetOutput implements §6's get_output: returns the current output buffer as
// raw bytes. EndMarker and Wildcard never appear in it (§6 reserved symbols).
func (g *Graph) GetOutput() []byte {
	out := make([]byte, len(g.output))
	for i, id := range g.output {
		out[i] = byte(id)
	}
	return out
}

// GetErrorRate implements §6's get_error_rate.
func (g *Graph) GetErrorRate() float64 { return g.State.ErrorRate }

// GetPatternCount implements §6's get_pattern_count: the number of patterns
// ever created, active or pruned (matching SystemState's accounting, which
// tracks active count separately).
func (g *Graph) GetPatternCount() uint32 { return uint32(g.Store.Len()) }

// GetEdgeWeight implements §6's get_edge_weight. ok is false if no edge
// from->to exists.
func (g *Graph) GetEdgeWeight(from, to byte) (weight float64, ok bool) {
	e := g.Edges.Find(common.NodeID(from), common.NodeID(to))
	if e == nil {
		return 0, false
	}
	return float64(e.Weight), true
}

// PatternInfo is the result of GetPatternInfo.
type PatternInfo struct {
	Sequence []common.NodeID
	Strength float64
}

// GetPatternInfo implements §6's get_pattern_info.
func (g *Graph) GetPatternInfo(id int) (PatternInfo, bool) {
	p := g.Store.Get(common.PatternHandle(id))
	if p == nil {
		return PatternInfo{}, false
	}
	return PatternInfo{Sequence: append([]common.NodeID(nil), p.Sequence...), Strength: p.Strength}, true
}

// GetPatternPredictions implements §6's get_pattern_predictions.
func (g *Graph) GetPatternPredictions(id int) (nodeIDs []common.NodeID, weights []float64, ok bool) {
	p := g.Store.Get(common.PatternHandle(id))
	if p == nil {
		return nil, nil, false
	}
	return append([]common.NodeID(nil), p.PredictedNodes...), append([]float64(nil), p.PredictionWeights...), true
}

// ApplyErrorFeedback implements §6's apply_error_feedback: a universal
// negative signal without a target, used for failure events reported by the
// host.
func (g *Graph) ApplyErrorFeedback(magnitude float64) error {
	if magnitude < 0 || magnitude > 1 {
		return common.NewError(common.InvalidArgument, "magnitude must be in [0,1]", nil)
	}
	g.learner.ApplyErrorFeedback(g.State, magnitude, g.steps)
	return nil
}

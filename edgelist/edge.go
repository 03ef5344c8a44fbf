// Package edgelist implements the per-source dynamic list of directed edges
// (node-to-node and, via the same structure, pattern-to-pattern) with
// create-or-strengthen, pruning, and relative-weight operations.
package edgelist

import (
	"math"

	"melvingraph/common"
)

// Edge is a single directed connection living in its source's outgoing
// list. ToID is the target node (or pattern identifier, for pattern-edge
// lists); the zero value is never a valid edge since CreateOrStrengthen
// always assigns ToID explicitly.
type Edge struct {
	ToID          common.NodeID
	Weight        common.Weight
	UseCount      int64
	SuccessCount  int64
	Active        bool
	IsPatternEdge bool
	ContextNode   common.NodeID // frozen at creation, never overwritten
}

// Lists owns the outgoing edge list for every source id, keyed by the
// source's NodeID (or, for pattern-to-pattern edges, a PatternHandle cast to
// NodeID by the caller).
type Lists struct {
	out map[common.NodeID][]*Edge
}

// New returns an empty edge-list table.
func New() *Lists {
	return &Lists{out: make(map[common.NodeID][]*Edge)}
}

// Out returns the outgoing edge slice for from; it is nil when from has no
// edges.
func (l *Lists) Out(from common.NodeID) []*Edge {
	return l.out[from]
}

// Find returns the edge from->to if one exists (active or not), else nil.
func (l *Lists) Find(from, to common.NodeID) *Edge {
	for _, e := range l.out[from] {
		if e.ToID == to {
			return e
		}
	}
	return nil
}

// CreateOrStrengthen implements §4.3's Create-or-strengthen operation.
// Self-loops are rejected outright. If an active edge from->to already
// exists, its use count and weight grow; otherwise a new edge is appended
// with the default initial weight 0.5. learningRate is the system's current
// learning rate (SystemState.LearningRate). Returns the edge, or nil if the
// request was a rejected self-loop.
func (l *Lists) CreateOrStrengthen(from, to common.NodeID, learningRate float64, isPatternEdge bool) *Edge {
	if from == to {
		return nil
	}

	if e := l.Find(from, to); e != nil && e.Active {
		e.UseCount++
		successRate := 0.0
		if e.UseCount > 0 {
			successRate = float64(e.SuccessCount) / float64(e.UseCount)
		}
		growth := 0.1 * learningRate * (1 + math.Log(1+float64(e.UseCount))/10) * (1 + 2*successRate)
		if growth > 0.5 {
			growth = 0.5
		}
		e.Weight += common.Weight(growth)
		return e
	}

	e := &Edge{
		ToID:          to,
		Weight:        0.5,
		UseCount:      1,
		Active:        true,
		IsPatternEdge: isPatternEdge,
		ContextNode:   -1,
	}
	l.out[from] = append(l.out[from], e)
	return e
}

// SetContextOnce records ctx as the edge's ContextNode the first time it is
// exercised in a given context; subsequent calls are no-ops, matching the
// "frozen at creation" invariant.
func (e *Edge) SetContextOnce(ctx common.NodeID) {
	if e.ContextNode == -1 {
		e.ContextNode = ctx
	}
}

// MetabolicLoad is (edge-count/256)^2 for a source node's outgoing list,
// used to gate pruning. SystemState's metabolic pressure is computed
// separately, from the total active edge count.
func (l *Lists) MetabolicLoad(from common.NodeID) float64 {
	count := float64(len(l.out[from]))
	frac := count / 256.0
	return frac * frac
}

// Prune implements §4.3's Prune operation for a single source: when the
// source's metabolic load exceeds 0.5, edges whose value (weight divided by
// an equal per-edge cost share) falls below metabolicLoad*0.1 are
// deactivated (not freed); counters are retained.
func (l *Lists) Prune(from common.NodeID) {
	edges := l.out[from]
	if len(edges) == 0 {
		return
	}
	load := l.MetabolicLoad(from)
	if load <= 0.5 {
		return
	}
	costShare := 1.0 / float64(len(edges))
	cutoff := load * 0.1
	for _, e := range edges {
		if !e.Active {
			continue
		}
		value := float64(e.Weight) / costShare
		if value < cutoff {
			e.Active = false
		}
	}
}

// RelativeWeight returns e.Weight divided by the maximum weight among from's
// outgoing edges (the "total_weight" field in the design notes actually
// stores the running max, not a sum). Returns 0 if from has no edges or the
// max is zero.
func (l *Lists) RelativeWeight(from common.NodeID, e *Edge) float64 {
	maxW := l.MaxWeight(from)
	if maxW <= 0 {
		return 0
	}
	return float64(e.Weight) / maxW
}

// MaxWeight returns the maximum weight among from's active outgoing edges.
func (l *Lists) MaxWeight(from common.NodeID) float64 {
	max := 0.0
	for _, e := range l.out[from] {
		if e.Active && float64(e.Weight) > max {
			max = float64(e.Weight)
		}
	}
	return max
}

// Each calls fn for every source id with at least one edge.
func (l *Lists) Each(fn func(from common.NodeID, edges []*Edge)) {
	for from, edges := range l.out {
		fn(from, edges)
	}
}

// ActiveCount returns the total number of active edges across all sources.
func (l *Lists) ActiveCount() int {
	count := 0
	for _, edges := range l.out {
		for _, e := range edges {
			if e.Active {
				count++
			}
		}
	}
	return count
}

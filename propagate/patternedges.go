package propagate

import (
	"melvingraph/common"
	"melvingraph/edgelist"
)

// PatternEdgeAdapter adapts an edgelist.Lists keyed by PatternHandle (cast to
// NodeID) into the PatternEdgeSource interface the pattern propagator
// consumes, so the propagate package's pattern-edge step does not need to
// know edgelist's concrete representation.
type PatternEdgeAdapter struct {
	Edges *edgelist.Lists
}

// Neighbors returns the pattern handles reachable from from via an active
// pattern-to-pattern edge.
func (a *PatternEdgeAdapter) Neighbors(from common.PatternHandle) []common.PatternHandle {
	out := a.Edges.Out(common.NodeID(from))
	neighbors := make([]common.PatternHandle, 0, len(out))
	for _, e := range out {
		if e.Active {
			neighbors = append(neighbors, common.PatternHandle(e.ToID))
		}
	}
	return neighbors
}

// Weight returns the edge weight from->to, or 0 if no such edge exists.
func (a *PatternEdgeAdapter) Weight(from, to common.PatternHandle) float64 {
	e := a.Edges.Find(common.NodeID(from), common.NodeID(to))
	if e == nil || !e.Active {
		return 0
	}
	return float64(e.Weight)
}

package propagate

import (
	"testing"

	"melvingraph/common"
	"melvingraph/edgelist"
)

func TestPatternEdgeAdapter_NeighborsAndWeight(t *testing.T) {
	edges := edgelist.New()
	adapter := &PatternEdgeAdapter{Edges: edges}

	from, to := common.PatternHandle(0), common.PatternHandle(1)
	e := edges.CreateOrStrengthen(common.NodeID(from), common.NodeID(to), 0.1, true)
	e.Weight = 0.75

	neighbors := adapter.Neighbors(from)
	if len(neighbors) != 1 || neighbors[0] != to {
		t.Fatalf("expected [%v], got %v", to, neighbors)
	}
	if w := adapter.Weight(from, to); w != 0.75 {
		t.Errorf("expected weight 0.75, got %v", w)
	}
}

func TestPatternEdgeAdapter_NoEdgeReturnsZeroWeight(t *testing.T) {
	edges := edgelist.New()
	adapter := &PatternEdgeAdapter{Edges: edges}

	if w := adapter.Weight(common.PatternHandle(0), common.PatternHandle(1)); w != 0 {
		t.Errorf("expected 0 for a missing edge, got %v", w)
	}
}

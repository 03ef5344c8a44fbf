package propagate

import (
	"testing"

	"melvingraph/common"
	"melvingraph/nodearr"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

func newTestPatternPropagator() (*PatternPropagator, *nodearr.NodeArray, *pattern.Store) {
	nodes := nodearr.New()
	store := pattern.NewStore()
	return &PatternPropagator{
		Store: store,
		Nodes: nodes,
		PortOf: func(id common.NodeID) (common.Port, bool) {
			return 0, false
		},
	}, nodes, store
}

func TestPatternPropagatorStep_MatchedPatternGainsActivation(t *testing.T) {
	pp, nodes, store := newTestPatternPropagator()
	state := sysstate.New()

	a, b := common.NodeID('a'), common.NodeID('b')
	nodes.AddActivation(a, 1.0, -1, 0)
	nodes.AddActivation(b, 1.0, -1, 0)

	handle := store.Create([]common.NodeID{a, b}, common.ContextVector{}, 0)

	pp.Step(state, []common.NodeID{a, b}, nil, common.ContextVector{})

	p := store.Get(handle)
	if p.Activation <= 0 {
		t.Errorf("expected a matched pattern to gain activation, got %v", p.Activation)
	}
}

func TestPatternPropagatorStep_UnmatchedPatternDecays(t *testing.T) {
	pp, _, store := newTestPatternPropagator()
	state := sysstate.New()

	a, b, c := common.NodeID('a'), common.NodeID('b'), common.NodeID('c')
	handle := store.Create([]common.NodeID{a, b}, common.ContextVector{}, 0)
	p := store.Get(handle)
	p.Activation = 1.0

	pp.Step(state, []common.NodeID{c}, nil, common.ContextVector{})

	if p.Activation != 0.95 {
		t.Errorf("expected an unmatched pattern's activation to decay by 0.95, got %v", p.Activation)
	}
}

func TestPatternPropagatorStep_InactivePatternUntouched(t *testing.T) {
	pp, nodes, store := newTestPatternPropagator()
	state := sysstate.New()

	a, b := common.NodeID('a'), common.NodeID('b')
	nodes.AddActivation(a, 1.0, -1, 0)
	nodes.AddActivation(b, 1.0, -1, 0)

	handle := store.Create([]common.NodeID{a, b}, common.ContextVector{}, 0)
	p := store.Get(handle)
	p.Active = false

	pp.Step(state, []common.NodeID{a, b}, nil, common.ContextVector{})

	if p.Activation != 0 {
		t.Errorf("expected an inactive pattern to be skipped entirely, got activation %v", p.Activation)
	}
}

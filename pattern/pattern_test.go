package pattern

import (
	"testing"

	"melvingraph/common"
)

func TestIsPositionalClassification(t *testing.T) {
	s := NewStore()
	posHandle := s.Create([]common.NodeID{common.Wildcard, common.Wildcard, 'x'}, common.ContextVector{}, 0)
	seqHandle := s.Create([]common.NodeID{'c', 'a', 't'}, common.ContextVector{}, 0)

	if !s.Get(posHandle).IsPositional() {
		t.Fatalf("expected mostly-wildcard pattern to be positional")
	}
	if s.Get(seqHandle).IsPositional() {
		t.Fatalf("expected fully-concrete pattern to be sequential")
	}
}

func TestWildcardMatch(t *testing.T) {
	s := NewStore()
	h := s.Create([]common.NodeID{common.Wildcard, 'b'}, common.ContextVector{}, 0)
	p := s.Get(h)

	seq := []common.NodeID{'a', 'b'}
	if !Match(p, seq, 0, nil, common.ContextVector{}) {
		t.Fatalf("expected wildcard-headed pattern to match any first byte followed by 'b'")
	}
	seq2 := []common.NodeID{'a', 'c'}
	if Match(p, seq2, 0, nil, common.ContextVector{}) {
		t.Fatalf("expected no match when second byte differs")
	}
}

func TestContextGateRejectsDissimilarContext(t *testing.T) {
	s := NewStore()
	h := s.Create([]common.NodeID{'a'}, common.ContextVector{1, 0, 0}, 0)
	p := s.Get(h)
	ambient := common.ContextVector{0, 1, 0}
	if Match(p, []common.NodeID{'a'}, 0, nil, ambient) {
		t.Fatalf("expected orthogonal context vectors to fail the 0.3 cosine gate")
	}
}

func TestForwardPassBounded(t *testing.T) {
	s := NewStore()
	h := s.Create([]common.NodeID{'a', 'b'}, common.ContextVector{}, 0)
	p := s.Get(h)
	p.Strength = 1.0
	act := p.ForwardPass([]float64{100, 100}, func(common.NodeID) float64 { return 0 }, false, 0)
	if act < 0 || act > 10 {
		t.Fatalf("pattern activation must stay within [0,10], got %v", act)
	}
}

func TestAccumulatedMeaningHardCap(t *testing.T) {
	p := newPattern([]common.NodeID{'a'}, common.ContextVector{}, 0)
	p.AddAccumulatedMeaning(1e9)
	if p.AccumulatedMeaning > 1000 {
		t.Fatalf("expected accumulated meaning capped at 1000, got %v", p.AccumulatedMeaning)
	}
}

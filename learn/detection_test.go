package learn

import (
	"testing"

	"melvingraph/common"
)

func TestDetectSequentialPatterns_CreatesPatternForRepeatedBigram(t *testing.T) {
	l, _, _, store := newTestLearner()

	a, b := common.NodeID('a'), common.NodeID('b')
	input := []common.NodeID{a, b, a, b, a, b}

	before := store.Len()
	l.DetectSequentialPatterns(0.5, input, common.ContextVector{}, 0)
	if store.Len() <= before {
		t.Error("expected a new pattern to be created for the repeated bigram")
	}
	if !l.patternExists([]common.NodeID{a, b}) {
		t.Error("expected the [a b] bigram to exist as a pattern")
	}
}

func TestDetectSequentialPatterns_NoopOnShortInput(t *testing.T) {
	l, _, _, store := newTestLearner()

	before := store.Len()
	l.DetectSequentialPatterns(0.5, []common.NodeID{common.NodeID('a')}, common.ContextVector{}, 0)
	if store.Len() != before {
		t.Error("expected no patterns to be created from an input shorter than 2")
	}
}

func TestDetectPositionalPatterns_CreatesPatternForRepeatedPosition(t *testing.T) {
	l, _, _, store := newTestLearner()

	a := common.NodeID('a')
	history := [][]common.NodeID{
		{a, common.NodeID('x')},
		{a, common.NodeID('y')},
	}

	before := store.Len()
	l.DetectPositionalPatterns(history, common.ContextVector{}, 0)
	if store.Len() <= before {
		t.Error("expected a positional pattern to be created for a value repeated at the same position")
	}
}

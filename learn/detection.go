package learn

import (
	"melvingraph/common"
	"melvingraph/pattern"
)

// DetectSequentialPatterns scans the input for repeated bigrams above a
// relative threshold (§4.4's pattern-creation trigger, tuned per §4.11) and
// generalizes first-position variants of the same suffix into a
// wildcard-headed pattern.
func (l *Learner) DetectSequentialPatterns(errorRate float64, input []common.NodeID, ambientContext common.ContextVector, port common.Port) {
	if len(input) < 2 {
		return
	}

	threshold := creationThreshold(errorRate)

	counts := map[[2]common.NodeID]int{}
	firstOf := map[common.NodeID][]common.NodeID{} // suffix byte -> observed first bytes
	for i := 0; i+1 < len(input); i++ {
		a, b := input[i], input[i+1]
		counts[[2]common.NodeID{a, b}]++
		firstOf[b] = appendUnique(firstOf[b], a)
	}

	for pair, count := range counts {
		if float64(count) < threshold {
			continue
		}
		if l.patternExists(pair[:]) {
			continue
		}
		l.Store.Create(pair[:], ambientContext, port)
	}

	for suffix, firsts := range firstOf {
		if len(firsts) < 2 {
			continue
		}
		seq := []common.NodeID{common.Wildcard, suffix}
		if l.patternExists(seq) {
			continue
		}
		h := l.Store.Create(seq, ambientContext, port)
		p := l.Store.Get(h)
		p.Strength = clamp(float64(len(firsts))/float64(len(input)), 0, 1)
	}
}

func creationThreshold(errorRate float64) float64 {
	t := 2 * (1 - errorRate)
	if t > 3 {
		t = 3
	}
	if t < 1.5 {
		t = 1.5
	}
	return t
}

func appendUnique(xs []common.NodeID, v common.NodeID) []common.NodeID {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}

func (l *Learner) patternExists(seq []common.NodeID) bool {
	found := false
	l.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if found || !p.Active || len(p.Sequence) != len(seq) {
			return
		}
		for i := range seq {
			if p.Sequence[i] != seq[i] {
				return
			}
		}
		found = true
	})
	return found
}

// DetectPositionalPatterns scans the input-history window: for each
// (position, value) pair seen in at least 2 inputs, create a positional
// pattern (all-wildcard except at that position), strengthened
// proportionally to occurrence frequency.
func (l *Learner) DetectPositionalPatterns(history [][]common.NodeID, ambientContext common.ContextVector, port common.Port) {
	if len(history) < 2 {
		return
	}
	valueAt := map[int]map[common.NodeID]int{}
	for _, seq := range history {
		for pos, v := range seq {
			if valueAt[pos] == nil {
				valueAt[pos] = map[common.NodeID]int{}
			}
			valueAt[pos][v]++
		}
	}

	for pos, values := range valueAt {
		for v, occ := range values {
			if occ < 2 {
				continue
			}
			seq := make([]common.NodeID, pos+1)
			for i := range seq {
				seq[i] = common.Wildcard
			}
			seq[pos] = v
			if l.patternExists(seq) {
				continue
			}
			h := l.Store.Create(seq, ambientContext, port)
			p := l.Store.Get(h)
			p.Strength = clamp(float64(occ)/float64(len(history)), 0, 1)
		}
	}
}

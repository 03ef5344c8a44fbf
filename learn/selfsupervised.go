package learn

import (
	"melvingraph/common"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// SelfSupervisedSequential reinforces sequential edges from input always,
// and from output only in generation mode (no target was supplied), per
// §4.11's self-supervised pass.
func (l *Learner) SelfSupervisedSequential(state *sysstate.State, input, output []common.NodeID, generationMode bool) {
	for i := 0; i+1 < len(input); i++ {
		l.Edges.CreateOrStrengthen(input[i], input[i+1], state.LearningRate, false)
	}
	if generationMode {
		for i := 0; i+1 < len(output); i++ {
			l.Edges.CreateOrStrengthen(output[i], output[i+1], state.LearningRate, false)
		}
	}
}

// ValidateHierarchy marks non-root patterns as validated when their parent
// predicts nodes that appear inside their own sequence, strengthening the
// parent-child link's implicit trust (tracked via CoOccurrenceStrength since
// the data model has no separate "validated" flag).
func (l *Learner) ValidateHierarchy() {
	l.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || p.ParentPatternID == common.PatternNone {
			return
		}
		parent := l.Store.Get(p.ParentPatternID)
		if parent == nil || !parent.Active {
			return
		}
		for _, predicted := range parent.PredictedNodes {
			for _, sym := range p.Sequence {
				if sym == predicted {
					p.CoOccurrenceStrength = clamp(p.CoOccurrenceStrength+0.05, 0, 1)
					return
				}
			}
		}
	})
}

// ValidateCoOccurrence learns an association between every pair of patterns
// that are simultaneously active (both matched the current output tail),
// mutually strengthening their association entries.
func (l *Learner) ValidateCoOccurrence(output []common.NodeID) {
	active := l.Store.ActiveSet()
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := l.Store.Get(active[i]), l.Store.Get(active[j])
			if a == nil || b == nil || !a.Active || !b.Active {
				continue
			}
			l.learnAssociation(active[i], a, active[j])
			l.learnAssociation(active[j], b, active[i])
		}
	}
}

func (l *Learner) learnAssociation(h common.PatternHandle, p *pattern.Pattern, other common.PatternHandle) {
	for i, assoc := range p.AssociatedPatterns {
		if assoc == other {
			p.AssociationStrengths[i] = clamp(p.AssociationStrengths[i]+0.05, 0, 1)
			return
		}
	}
	p.AssociatedPatterns = append(p.AssociatedPatterns, other)
	p.AssociationStrengths = append(p.AssociationStrengths, 0.1)
}

// VerifyPredictions checks every active pattern's predictions against the
// observed output and nudges weights toward what was actually seen.
func (l *Learner) VerifyPredictions(output []common.NodeID) {
	l.Store.Each(func(h common.PatternHandle, p *pattern.Pattern) {
		if !p.Active || len(output) < len(p.Sequence)+1 {
			return
		}
		start := len(output) - len(p.Sequence) - 1
		matchEnd := start + len(p.Sequence)
		for i, sym := range p.Sequence {
			if sym == common.Wildcard {
				continue
			}
			if output[start+i] != sym {
				return
			}
		}
		observed := output[matchEnd]
		found := false
		for i, t := range p.PredictedNodes {
			if t != observed || i >= len(p.PredictionWeights) {
				continue
			}
			found = true
			p.PredictionWeights[i] = clamp(p.PredictionWeights[i]+0.02, 0, 1)
		}
		if !found {
			l.strengthenPrediction(h, p, observed, 0.05)
		}
	})
}

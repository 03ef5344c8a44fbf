package propagate

import (
	"math"

	"melvingraph/common"
	"melvingraph/pattern"
	"melvingraph/sysstate"
)

// applyLocalCompetition implements §4.6 step 4: find other active patterns
// that predict any of the same nodes as p, derive the average local
// competition and p's own success rate, and use them to set p's threshold
// and nudge its strength toward its observed success rate.
func (pp *PatternPropagator) applyLocalCompetition(h common.PatternHandle, p *pattern.Pattern, state *sysstate.State) {
	competitorActivation := 0.0
	competitorCount := 0
	seen := map[common.PatternHandle]bool{h: true}
	for _, predicted := range p.PredictedNodes {
		for _, other := range pp.Store.Predicting(predicted) {
			if seen[other] {
				continue
			}
			seen[other] = true
			op := pp.Store.Get(other)
			if op == nil || !op.Active || op.Activation <= 0 {
				continue
			}
			competitorActivation += op.Activation
			competitorCount++
		}
	}
	avgLocalCompetition := 0.0
	if competitorCount > 0 {
		avgLocalCompetition = competitorActivation / float64(competitorCount)
	}

	successRate := p.UtilityRate()
	competitionAdj := avgLocalCompetition * 0.1
	successBonus := successRate * 0.2

	p.Threshold = clamp(0.3+competitionAdj-successBonus, 0.1, 0.9)
	p.Strength += 0.01 * (successRate - p.Strength)
	p.Strength = clamp(p.Strength, 0, 1)
}

// spreadToNodes implements §4.6 step 5: spread activation to predicted
// nodes, honoring the fired-predictions bitmask with a 3-step re-fire
// allowance.
func (pp *PatternPropagator) spreadToNodes(p *pattern.Pattern, state *sysstate.State) {
	successRate := p.UtilityRate()
	for i, target := range p.PredictedNodes {
		if i >= 64 {
			break // bitmask width
		}
		bit := uint64(1) << uint(i)
		alreadyFired := p.FiredPredictions&bit != 0
		if alreadyFired && state.Step-p.LastFiredStep < 3 {
			continue
		}
		if !target.IsByte() {
			continue // EndMarker handled by the selector directly
		}
		weight := 0.0
		if i < len(p.PredictionWeights) {
			weight = p.PredictionWeights[i]
		}
		transfer := p.Activation * weight * p.Strength * (1 + 2*(successRate-0.5))
		if transfer <= 0 {
			continue
		}
		pp.Nodes.AddActivation(target, common.Activation(transfer), -1, pp.Nodes.Get(target).SourcePort)
		p.FiredPredictions |= bit
	}
}

// spreadToPatterns implements §4.6 step 6: spread activation to predicted
// patterns scaled by a meaning multiplier derived from the target's
// accumulated meaning (log-compressed) and tempered by the error rate;
// update hierarchy links when p is a closer-to-root parent.
func (pp *PatternPropagator) spreadToPatterns(h common.PatternHandle, p *pattern.Pattern, state *sysstate.State) {
	for i, targetHandle := range p.PredictedPatterns {
		target := pp.Store.Get(targetHandle)
		if target == nil || !target.Active {
			continue
		}
		weight := 0.0
		if i < len(p.PatternPredictionWeights) {
			weight = p.PatternPredictionWeights[i]
		}
		meaningMultiplier := 1 + math.Log1p(target.AccumulatedMeaning)/10*(1-state.ErrorRate)
		transfer := p.Activation * weight * p.Strength * meaningMultiplier
		target.Activation = clampActivation(target.Activation + transfer)

		if target.ParentPatternID == common.PatternNone || p.ChainDepth < chainDepthOf(pp.Store, target.ParentPatternID) {
			target.ParentPatternID = h
			target.ChainDepth = p.ChainDepth + 1
		}
		if target.ParentPatternID == h {
			target.AddAccumulatedMeaning(0.1 * p.Activation)
		}
	}
}

func chainDepthOf(s *pattern.Store, h common.PatternHandle) int {
	p := s.Get(h)
	if p == nil {
		return math.MaxInt32
	}
	return p.ChainDepth
}

// spreadThroughPatternEdges implements §4.6 step 7: spread through explicit
// pattern-to-pattern edges.
func (pp *PatternPropagator) spreadThroughPatternEdges(h common.PatternHandle, p *pattern.Pattern) {
	if pp.PatternEdges == nil {
		return
	}
	for _, neighbor := range pp.PatternEdges.Neighbors(h) {
		target := pp.Store.Get(neighbor)
		if target == nil || !target.Active {
			continue
		}
		w := pp.PatternEdges.Weight(h, neighbor)
		target.Activation = clampActivation(target.Activation + p.Activation*w*p.PropagationTransferRate)
	}
}

// updateImportanceAndRules implements §4.6 step 8: recompute dynamic
// importance as the mean of usage, success, hierarchy, and co-occurrence
// signals, and refresh RuleSuccessRate from successes/attempts (RuleConfidence
// is derived in evaluateRules).
func (pp *PatternPropagator) updateImportanceAndRules(p *pattern.Pattern) {
	usage := math.Log1p(float64(p.TransferUseCount)) / 10
	success := p.UtilityRate()
	hierarchy := 1.0 / float64(1+p.ChainDepth)
	coOccurrence := p.CoOccurrenceStrength

	p.DynamicImportance = (usage + success + hierarchy + coOccurrence) / 4.0
	p.ContextFrequency = usage

	if p.RuleAttempts > 0 {
		p.RuleSuccessRate = float64(p.RuleSuccesses) / float64(p.RuleAttempts)
	}
}

// applyAssociations implements §4.6 step 9: co-activation-based mutual
// boost between associated patterns, stronger when confidence and hierarchy
// depth are similar.
func (pp *PatternPropagator) applyAssociations(h common.PatternHandle, p *pattern.Pattern) {
	for i, assocHandle := range p.AssociatedPatterns {
		assoc := pp.Store.Get(assocHandle)
		if assoc == nil || !assoc.Active || assoc.Activation <= 0 {
			continue
		}
		strength := 0.0
		if i < len(p.AssociationStrengths) {
			strength = p.AssociationStrengths[i]
		}
		similarity := 1 - math.Abs(p.RuleConfidence-assoc.RuleConfidence)
		depthSimilarity := 1.0 / (1.0 + math.Abs(float64(p.ChainDepth-assoc.ChainDepth)))
		boost := strength * similarity * depthSimilarity * 0.1

		mutual := p.Activation * assoc.Activation * boost
		p.Activation = clampActivation(p.Activation + mutual)
		assoc.Activation = clampActivation(assoc.Activation + mutual)
	}
}

// applyHierarchicalFeedback implements §4.6 step 10: active patterns boost
// their parent's activation and accumulated meaning.
func (pp *PatternPropagator) applyHierarchicalFeedback(p *pattern.Pattern) {
	if p.ParentPatternID == common.PatternNone {
		return
	}
	parent := pp.Store.Get(p.ParentPatternID)
	if parent == nil || !parent.Active {
		return
	}
	boost := p.Activation * 0.2
	parent.Activation = clampActivation(parent.Activation + boost)
	parent.AddAccumulatedMeaning(boost * 0.5)
}

// evaluateRules implements §4.6 step 11: for each rule (condition, target,
// boost), if the condition pattern is above its threshold, add
// condition.activation * boost * rule_strength * rule_confidence to the
// target's activation.
func (pp *PatternPropagator) evaluateRules(p *pattern.Pattern) {
	for i := range p.Rules {
		r := &p.Rules[i]
		cond := pp.Store.Get(r.Condition)
		target := pp.Store.Get(r.Target)
		if cond == nil || target == nil || !target.Active {
			continue
		}
		p.RuleAttempts++
		if cond.Activation < cond.Threshold {
			continue
		}
		add := cond.Activation * r.Boost * r.Strength * p.RuleConfidence
		target.Activation = clampActivation(target.Activation + add)
		p.RuleSuccesses++
	}
	if p.RuleAttempts > 0 {
		p.RuleConfidence = clamp(float64(p.RuleSuccesses)/float64(p.RuleAttempts), 0, 1)
	}
}

// suppressCompetitors implements §4.6 step 12: when p's own success rate
// gives it suppression strength, dampen the activation of other active
// patterns predicting the same nodes whose success rate is well below p's.
func (pp *PatternPropagator) suppressCompetitors(h common.PatternHandle, p *pattern.Pattern) {
	suppressionStrength := p.UtilityRate() - 0.5
	if suppressionStrength <= 0 {
		return
	}
	seen := map[common.PatternHandle]bool{h: true}
	for _, predicted := range p.PredictedNodes {
		for _, other := range pp.Store.Predicting(predicted) {
			if seen[other] {
				continue
			}
			seen[other] = true
			op := pp.Store.Get(other)
			if op == nil || !op.Active || op.Activation <= 0 {
				continue
			}
			if op.UtilityRate() >= p.UtilityRate()-0.2 {
				continue
			}
			op.Activation = clampActivation(op.Activation * (1 - 0.3*suppressionStrength))
		}
	}
}

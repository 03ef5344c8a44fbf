package learn

import (
	"melvingraph/common"
	"melvingraph/pattern"
)

// Prune implements §4.11's pattern pruning: recompute strength toward the
// observed success rate, then mark inactive (Strength set to 0, structure
// retained per the data model's deferred-reclamation policy) any pattern
// whose strength has fallen below 0.01/pattern_count and whose utility has
// stayed below chance (0.2) after at least 50 attempts.
func (l *Learner) Prune() {
	count := l.Store.Len()
	if count == 0 {
		return
	}
	floor := 0.01 / float64(count)

	l.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active {
			return
		}
		successRate := p.UtilityRate()
		p.Strength += 0.02 * (successRate - p.Strength)
		p.Strength = clamp(p.Strength, 0, 1)

		if p.Strength < floor && p.PredictionAttempts >= 50 && successRate < 0.2 {
			p.Strength = 0
			p.Active = false
		}
	})
}

package pattern

import "melvingraph/common"

// OutgoingAverage supplies, per node, the value ForwardPass seeds a pattern's
// input weights from. PatternPropagator supplies the node's current
// activation (its avgOutgoing), not an average of outgoing edge weights.
type OutgoingAverage func(id common.NodeID) float64

// ForwardPass implements §4.5: lazily initialize InputWeights, seeding each
// non-wildcard position with half of avg(sym) (so seeds are not centered
// around 0 and are positive whenever avg is), then compute
// sigmoid(bias + sum(input_i * weight_i)) * strength * contextBoost.
//
// inputActivation must have the same length as p.Sequence. matchedIntoInput
// and inputLen together gate the context boost: it only applies when
// matching into the input buffer and the pattern is shorter than inputLen.
func (p *Pattern) ForwardPass(inputActivation []float64, avg OutgoingAverage, matchedIntoInput bool, inputLen int) float64 {
	if len(p.InputWeights) != len(p.Sequence) {
		p.InputWeights = make([]float64, len(p.Sequence))
		for i, sym := range p.Sequence {
			if sym == common.Wildcard {
				continue
			}
			center := avg(sym)
			p.InputWeights[i] = center - 0.5*center // half of avg(sym)
		}
		p.Bias = 0
	}

	sum := p.Bias
	for i := 0; i < len(inputActivation) && i < len(p.InputWeights); i++ {
		sum += inputActivation[i] * p.InputWeights[i]
	}

	contextBoost := 1.0
	if matchedIntoInput && inputLen > 0 && len(p.Sequence) < inputLen {
		contextBoost = 1 + 0.5*(float64(len(p.Sequence))/float64(inputLen))
	}

	p.Activation = clamp(sigmoid(sum)*p.Strength*contextBoost, 0, 10)
	return p.Activation
}

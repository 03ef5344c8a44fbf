// Package pattern implements the Pattern record (sequence, predictions,
// hierarchy, associations, rules, learned transfer/selection scalars) and
// the PatternStore arena that owns it, plus pattern matching (§4.4) and the
// pattern forward pass (§4.5).
package pattern

import "melvingraph/common"

// Rule is one entry of a pattern's "IF condition-pattern-active THEN boost
// target-pattern" rule table.
type Rule struct {
	Condition common.PatternHandle
	Target    common.PatternHandle
	Boost     float64
	Strength  float64 // self-regulated
}

// Pattern is a mutable record describing a learned sequence of node
// references (sequence elements may be Wildcard) together with all state
// propagation, selection, and learning attach to it.
type Pattern struct {
	Sequence []common.NodeID

	// Active is false once Strength has been driven to zero by persistent
	// below-chance utility; the handle stays valid but the pattern is inert.
	Active bool

	Strength  float64 // [0,1], converges toward prediction success rate
	Activation float64
	Threshold  float64
	Bias       float64
	InputWeights []float64 // lazily initialized on first forward pass

	PredictedNodes    []common.NodeID
	PredictionWeights []float64

	PredictedPatterns       []common.PatternHandle
	PatternPredictionWeights []float64

	ParentPatternID     common.PatternHandle
	ChainDepth          int
	AccumulatedMeaning  float64 // bounded; log-compressed above 100, cap 1000

	DynamicImportance    float64
	ContextFrequency     float64
	CoOccurrenceStrength float64

	AssociatedPatterns   []common.PatternHandle
	AssociationStrengths []float64

	Rules          []Rule
	RuleConfidence  float64
	RuleSuccessRate float64
	RuleAttempts    int64
	RuleSuccesses   int64

	HasFired        bool
	LastFiredStep   common.Step
	FiredPredictions uint64 // bitmask of predictions already spent this burst

	// Learned scalars, data-driven, updated per episode by the Learner.
	PropagationTransferRate float64
	PropagationDecayRate    float64
	PropagationThreshold    float64
	PropagationBoostFactor  float64
	SelectionWeightFactor     float64
	SelectionActivationFactor float64
	SelectionContextFactor    float64
	SelectionPatternFactor    float64
	TransferUseCount     int64
	TransferSuccessCount int64
	SelectionUseCount     int64
	SelectionSuccessCount int64

	InputPort  common.Port
	OutputPort common.Port

	ContextVector common.ContextVector

	PredictionAttempts  int64
	PredictionSuccesses int64
}

// newPattern returns a Pattern initialized with the learned-scalar defaults
// given in the data model (§3).
func newPattern(sequence []common.NodeID, ctx common.ContextVector, port common.Port) *Pattern {
	return &Pattern{
		Sequence:      append([]common.NodeID(nil), sequence...),
		Active:        true,
		Strength:      0.5,
		ParentPatternID: common.PatternNone,
		ChainDepth:    0,
		PropagationTransferRate: 0.5,
		PropagationDecayRate:    0.9,
		PropagationThreshold:    0.1,
		PropagationBoostFactor:  1.0,
		SelectionWeightFactor:     0.4,
		SelectionActivationFactor: 0.3,
		SelectionContextFactor:    0.2,
		SelectionPatternFactor:    0.1,
		InputPort:  port,
		OutputPort: port,
		ContextVector: ctx,
	}
}

// IsPositional classifies a pattern as positional (true) or sequential
// (false) per §4.4: positional when at most half its length is non-wildcard.
func (p *Pattern) IsPositional() bool {
	nonWild := 0
	for _, s := range p.Sequence {
		if s != common.Wildcard {
			nonWild++
		}
	}
	return nonWild*2 <= len(p.Sequence)
}

// UtilityRate returns PredictionSuccesses/PredictionAttempts, or 0 if the
// pattern has never been attempted.
func (p *Pattern) UtilityRate() float64 {
	if p.PredictionAttempts == 0 {
		return 0
	}
	return float64(p.PredictionSuccesses) / float64(p.PredictionAttempts)
}

// AddAccumulatedMeaning adds delta to AccumulatedMeaning, applying the
// log-compression above 100 and the hard cap at 1000 described in the data
// model.
func (p *Pattern) AddAccumulatedMeaning(delta float64) {
	p.AccumulatedMeaning = compressMeaning(p.AccumulatedMeaning + delta)
}

func compressMeaning(m float64) float64 {
	if m < 0 {
		m = 0
	}
	if m > 100 {
		// log-compress the portion above 100 so growth slows but never stops.
		over := m - 100
		m = 100 + logCompress(over)
	}
	if m > 1000 {
		m = 1000
	}
	return m
}

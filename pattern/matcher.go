package pattern

import "melvingraph/common"

// PortOf looks up the source port tagged onto a sequence element, or 0 if
// the caller has no port information for it. Hosts that track per-node
// ports implement this as a thin closure over their node table.
type PortOf func(id common.NodeID) (common.Port, bool)

// Match implements §4.4's PatternMatcher: does pattern p match sequence s
// starting at position start? ambientContext is the ongoing ambient context
// used for the cosine-similarity gate.
func Match(p *Pattern, s []common.NodeID, start int, portOf PortOf, ambientContext common.ContextVector) bool {
	if p.IsPositional() {
		if start != 0 || len(s) < len(p.Sequence) {
			return false
		}
	} else {
		if start+len(p.Sequence) > len(s) {
			return false
		}
	}

	if !contextCompatible(p, ambientContext) {
		return false
	}

	if !portCompatible(p, s, start, portOf) {
		return false
	}

	for i, sym := range p.Sequence {
		if sym == common.Wildcard {
			continue
		}
		if s[start+i] != sym {
			return false
		}
	}
	return true
}

// contextCompatible requires cosine similarity >= 0.3 unless the pattern's
// context vector is all-zero (unset), in which case it is always allowed.
func contextCompatible(p *Pattern, ambient common.ContextVector) bool {
	if isZeroVector(p.ContextVector) {
		return true
	}
	return cosineSimilarity(p.ContextVector, ambient) >= 0.3
}

// portCompatible requires the pattern's input port to match the source port
// of the first non-wildcard element's corresponding position in s, if that
// element exists in s and port information is available.
func portCompatible(p *Pattern, s []common.NodeID, start int, portOf PortOf) bool {
	if portOf == nil {
		return true
	}
	firstNonWild := -1
	for i, sym := range p.Sequence {
		if sym != common.Wildcard {
			firstNonWild = i
			break
		}
	}
	if firstNonWild == -1 {
		return true
	}
	idx := start + firstNonWild
	if idx < 0 || idx >= len(s) {
		return true
	}
	port, ok := portOf(s[idx])
	if !ok {
		return true
	}
	return p.InputPort == port
}

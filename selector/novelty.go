package selector

import (
	"melvingraph/common"
	"melvingraph/pattern"
)

// noveltyMemoryStrength computes w_n*node_mem + w_e*edge_mem + w_p*pattern_mem
// over input nodes, sequential edges, and pattern matches, per §4.8's novelty
// detection. Weak overlap with memory yields a low memory_strength, which the
// caller turns into a penalty on pattern/edge/generalization contributions.
func (sel *Selector) noveltyMemoryStrength(input []common.NodeID) float64 {
	if len(input) == 0 {
		return 1 // nothing to be novel about
	}

	nodeMem := sel.nodeMemorySignal(input)
	edgeMem := sel.edgeMemorySignal(input)
	patternMem := sel.patternMemorySignal(input)

	const wNode, wEdge, wPattern = 0.3, 0.3, 0.4
	return wNode*nodeMem + wEdge*edgeMem + wPattern*patternMem
}

func (sel *Selector) nodeMemorySignal(input []common.NodeID) float64 {
	total := 0.0
	for _, id := range input {
		if !id.IsByte() {
			continue
		}
		n := sel.Nodes.Get(id)
		if n.Exists && n.ReceiveCount > 0 {
			total += 1
		}
	}
	return total / float64(len(input))
}

func (sel *Selector) edgeMemorySignal(input []common.NodeID) float64 {
	if len(input) < 2 {
		return 0
	}
	hits := 0
	for i := 0; i+1 < len(input); i++ {
		if sel.Edges.Find(input[i], input[i+1]) != nil {
			hits++
		}
	}
	return float64(hits) / float64(len(input)-1)
}

func (sel *Selector) patternMemorySignal(input []common.NodeID) float64 {
	matched := 0
	total := 0
	sel.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active {
			return
		}
		total++
		maxStart := len(input) - len(p.Sequence)
		if p.IsPositional() {
			maxStart = 0
		}
		for start := 0; start <= maxStart; start++ {
			if pattern.Match(p, input, start, sel.PortOf, common.ContextVector{}) {
				matched++
				break
			}
		}
	})
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// Package nodearr implements the fixed-capacity table of byte-valued nodes
// (one per value 0-255) and their per-step dynamics, per the graph data
// model's Node and NodeArray components.
package nodearr

import "melvingraph/common"

// Node holds the per-byte-value state the engine maintains. A Node is
// created lazily on first activation and never destroyed; only its volatile
// fields reset between episodes.
type Node struct {
	Exists bool

	Activation         common.Activation
	PrevActivation     common.Activation
	ActivationMomentum float64

	Threshold  common.Threshold
	Adaptation float64 // fatigue, in [0, 0.8]

	FireCount    int64
	ReceiveCount int64

	ActivatedBy common.NodeID // last node id that drove this node's activation
	SourcePort  common.Port   // first-seen modality tag
}

// NodeArray is the fixed 256-slot table of byte nodes.
type NodeArray struct {
	slots [256]Node
}

// New returns an empty NodeArray with no nodes yet created.
func New() *NodeArray {
	return &NodeArray{}
}

// Get returns a pointer to the slot for id. id must be a byte value
// (0-255); callers must check id.IsByte() before calling, since Wildcard and
// EndMarker have no backing slot.
func (na *NodeArray) Get(id common.NodeID) *Node {
	return &na.slots[id]
}

// EnsureExists lazily initializes the node at id on first activation,
// tagging its source port and threshold defaults. Returns the node.
func (na *NodeArray) EnsureExists(id common.NodeID, port common.Port) *Node {
	n := &na.slots[id]
	if !n.Exists {
		n.Exists = true
		n.Threshold = 0.5
		n.ActivatedBy = -1
		n.SourcePort = port
	}
	return n
}

// AddActivation adds delta to the node's activation (creating it first if
// necessary) and records the driving context node.
func (na *NodeArray) AddActivation(id common.NodeID, delta common.Activation, from common.NodeID, port common.Port) {
	n := na.EnsureExists(id, port)
	n.Activation += delta
	n.ReceiveCount++
	n.ActivatedBy = from
}

// SetActivation overwrites a node's activation outright (used when seeding
// or re-seeding input nodes at episode start).
func (na *NodeArray) SetActivation(id common.NodeID, value common.Activation, port common.Port) {
	n := na.EnsureExists(id, port)
	n.Activation = value
}

// ResetVolatile clears per-episode volatile state (activation, previous
// activation, momentum, adaptation, ActivatedBy) while preserving
// Exists/Threshold, which are structural and persist across episodes. The
// FireCount and ReceiveCount counters are not reset.
func (na *NodeArray) ResetVolatile() {
	for i := range na.slots {
		n := &na.slots[i]
		if !n.Exists {
			continue
		}
		n.Activation = 0
		n.PrevActivation = 0
		n.ActivationMomentum = 0
		n.Adaptation = 0
		n.ActivatedBy = -1
	}
}

// Each calls fn for every existing node, passing its id and pointer.
func (na *NodeArray) Each(fn func(id common.NodeID, n *Node)) {
	for i := range na.slots {
		if na.slots[i].Exists {
			fn(common.NodeID(i), &na.slots[i])
		}
	}
}

// ActiveCount returns the number of existing nodes with activation above the
// supplied threshold.
func (na *NodeArray) ActiveCount(threshold common.Activation) int {
	count := 0
	for i := range na.slots {
		if na.slots[i].Exists && na.slots[i].Activation >= threshold {
			count++
		}
	}
	return count
}

// TotalActivation sums activation across all existing nodes.
func (na *NodeArray) TotalActivation() common.Activation {
	var total common.Activation
	for i := range na.slots {
		if na.slots[i].Exists {
			total += na.slots[i].Activation
		}
	}
	return total
}

// AverageActivation returns TotalActivation over the existing node count, or
// 0 if no node exists yet.
func (na *NodeArray) AverageActivation() common.Activation {
	var total common.Activation
	count := 0
	for i := range na.slots {
		if na.slots[i].Exists {
			total += na.slots[i].Activation
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / common.Activation(count)
}

// AverageThreshold returns the mean threshold across existing nodes, or 0.5
// (the default) if none exist.
func (na *NodeArray) AverageThreshold() common.Threshold {
	var total common.Threshold
	count := 0
	for i := range na.slots {
		if na.slots[i].Exists {
			total += na.slots[i].Threshold
			count++
		}
	}
	if count == 0 {
		return 0.5
	}
	return total / common.Threshold(count)
}

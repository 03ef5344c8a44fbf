package nodearr

import (
	"math"

	"melvingraph/common"
)

// sigmoid is the standard logistic function, used to re-bound thresholds
// into (0, 1) after an additive nudge.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// UpdateDynamics applies the per-step node dynamics update of the graph data
// model: momentum tracking, natural decay shaped by competition pressure,
// importance-driven threshold adaptation, and threshold re-bounding. It must
// run once per existing node per step, after propagation and selection.
func (na *NodeArray) UpdateDynamics(avgActivation common.Activation, competitionPressure, learningRate float64) {
	na.Each(func(_ common.NodeID, n *Node) {
		updateOne(n, avgActivation, competitionPressure, learningRate)
	})
}

func updateOne(n *Node, avgActivation common.Activation, competitionPressure, learningRate float64) {
	delta := float64(n.Activation - n.PrevActivation)
	n.ActivationMomentum = 0.9*n.ActivationMomentum + 0.1*delta
	n.PrevActivation = n.Activation

	n.Activation = n.Activation * common.Activation(0.95+0.05*(1-competitionPressure))

	importance := nodeImportance(n, avgActivation)

	target := 1 - importance
	n.Threshold += common.Threshold(0.01 * learningRate * (target - float64(n.Threshold)))
	n.Threshold = common.Threshold(sigmoid(5 * (float64(n.Threshold) - 0.5)))
}

// nodeImportance is the mean of three normalized signals: usage (log
// receive-count pressure), activation (relative to the network average,
// clamped above 0.5 when above average), and success (fire/receive ratio,
// defaulting to 0.5 when the node has never received activation).
func nodeImportance(n *Node, avgActivation common.Activation) float64 {
	usage := math.Log(1+float64(n.ReceiveCount)) / 10.0

	var activationSignal float64
	if avgActivation > 0 {
		activationSignal = float64(n.Activation) / (float64(avgActivation) + 0.1)
	}
	if float64(n.Activation) > float64(avgActivation) && activationSignal < 0.5 {
		activationSignal = 0.5
	}

	success := 0.5
	if n.ReceiveCount > 0 {
		success = float64(n.FireCount) / float64(n.ReceiveCount)
	}

	return (usage + activationSignal + success) / 3.0
}

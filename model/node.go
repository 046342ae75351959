package model

// InitialEnergy is the charge every sensor node starts a run with.
const InitialEnergy = 1.0

// SensorNode is a battery-powered sensor placed in the field.
//
// Energy and Alive are only ever changed through UseEnergy. Once Alive is
// false it stays false; Energy may be left slightly negative by the debit
// that killed the node.
type SensorNode struct {
	ID       int     `json:"id"`
	Position Point   `json:"position"`
	Energy   float64 `json:"energy"`
	Alive    bool    `json:"alive"`
}

// NewSensorNode returns a live node with a full battery.
func NewSensorNode(id int, pos Point) *SensorNode {
	return &SensorNode{
		ID:       id,
		Position: pos,
		Energy:   InitialEnergy,
		Alive:    true,
	}
}

// UseEnergy debits amount from a live node and marks it dead when its
// energy reaches zero. Dead nodes are left untouched.
func (n *SensorNode) UseEnergy(amount float64) {
	if !n.Alive {
		return
	}
	n.Energy -= amount
	if n.Energy <= 0 {
		n.Alive = false
	}
}

// ResidualEnergy is the node's usable charge, never below zero.
func (n *SensorNode) ResidualEnergy() float64 {
	if n.Energy < 0 {
		return 0
	}
	return n.Energy
}

// Clone returns a detached copy of the node.
func (n *SensorNode) Clone() *SensorNode {
	c := *n
	return &c
}

// CloneNodes deep-copies a node collection. Callers that hand nodes to a
// reader outside the owning run (API responses, stored records) use this so
// later rounds cannot mutate what they published.
func CloneNodes(nodes []*SensorNode) []*SensorNode {
	out := make([]*SensorNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

package model

// RoundMetrics is the census taken after a routing round.
type RoundMetrics struct {
	Round          int     `json:"round"`
	Delivered      int     `json:"delivered"`
	AliveCount     int     `json:"alive_count"`
	DeadCount      int     `json:"dead_count"`
	ResidualEnergy float64 `json:"residual_energy"`
}

// Census counts alive and dead nodes and sums their residual energy.
func Census(nodes []*SensorNode) (alive, dead int, residual float64) {
	for _, n := range nodes {
		if n.Alive {
			alive++
		} else {
			dead++
		}
		residual += n.ResidualEnergy()
	}
	return alive, dead, residual
}

// AliveNodes returns the live members of nodes, preserving order.
func AliveNodes(nodes []*SensorNode) []*SensorNode {
	out := make([]*SensorNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Alive {
			out = append(out, n)
		}
	}
	return out
}

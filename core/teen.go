package core

import (
	"math/rand/v2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// TEENRouter only transmits when a node's simulated reading crosses the
// configured thresholds.
type TEENRouter struct {
	params Params
	rng    *rand.Rand
}

func (r *TEENRouter) Protocol() model.Protocol { return model.ProtocolTEEN }

// Triggers reports whether a reading is reported under the given
// thresholds. The soft-threshold clause is kept even though the hard check
// implies it whenever soft <= hard.
func Triggers(sensed, hard, soft float64) bool {
	return sensed >= hard && sensed-soft >= 0
}

// Route draws a reading per live node; triggered nodes uplink and deliver
// if they survive the transmission. Quiet nodes pay nothing.
func (r *TEENRouter) Route(nodes []*model.SensorNode, packets int) RoundResult {
	res := RoundResult{Nodes: nodes, Edges: []model.Edge{}}
	bs := r.params.BaseStation
	em := r.params.Energy

	for _, n := range nodes {
		if !n.Alive {
			continue
		}
		sensed := SensedMin + r.rng.Float64()*(SensedMax-SensedMin)
		if !Triggers(sensed, r.params.HardThreshold, r.params.SoftThreshold) {
			continue
		}
		n.UseEnergy(em.TransmitCost(Distance(n.Position, bs), em.TEENDivisor))
		if n.Alive {
			res.Delivered += packets
			res.Edges = append(res.Edges, model.Edge{From: n.Position, To: bs})
		}
	}
	return res
}

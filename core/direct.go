package core

import "github.com/signalsfoundry/wsn-simulator/model"

// DirectRouter sends every live node's data straight to the base station.
type DirectRouter struct {
	params Params
}

func (r *DirectRouter) Protocol() model.Protocol { return model.ProtocolDirect }

// Route charges each live node for its uplink. A node that runs dry on its
// own transmission does not get its packets delivered.
func (r *DirectRouter) Route(nodes []*model.SensorNode, packets int) RoundResult {
	res := RoundResult{Nodes: nodes, Edges: []model.Edge{}}
	bs := r.params.BaseStation
	em := r.params.Energy

	for _, n := range nodes {
		if !n.Alive {
			continue
		}
		d := Distance(n.Position, bs)
		n.UseEnergy(em.TransmitCost(d, em.DirectDivisor))
		if n.Alive {
			res.Delivered += packets
			res.Edges = append(res.Edges, model.Edge{From: n.Position, To: bs})
		}
	}
	return res
}

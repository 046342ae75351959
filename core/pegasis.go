package core

import (
	"cmp"
	"slices"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// PEGASISRouter relays data along a chain of live nodes ordered by x
// coordinate. Only the last node in the chain talks to the base station.
//
// The chain is a plain sort by x rather than a greedy nearest-neighbour
// construction; comparison results depend on this ordering.
type PEGASISRouter struct {
	params Params
}

func (r *PEGASISRouter) Protocol() model.Protocol { return model.ProtocolPEGASIS }

// Route walks the chain, charging each sender for its hop and each receiver
// the flat receive cost, then uplinks from the chain leader. The leader's
// packets are always counted.
func (r *PEGASISRouter) Route(nodes []*model.SensorNode, packets int) RoundResult {
	chain := Chain(nodes)
	res := RoundResult{Nodes: nodes, Edges: make([]model.Edge, 0, len(chain))}
	if len(chain) == 0 {
		return res
	}
	em := r.params.Energy

	for i := 0; i < len(chain)-1; i++ {
		a, b := chain[i], chain[i+1]
		d := Distance(a.Position, b.Position)
		a.UseEnergy(em.TransmitCost(d, em.PEGASISChainDivisor))
		b.UseEnergy(em.ReceiveCost())
		res.Edges = append(res.Edges, model.Edge{From: a.Position, To: b.Position})
	}

	leader := chain[len(chain)-1]
	bs := r.params.BaseStation
	leader.UseEnergy(em.TransmitCost(Distance(leader.Position, bs), em.PEGASISLeaderDivisor))
	res.Delivered += packets
	res.Edges = append(res.Edges, model.Edge{From: leader.Position, To: bs})
	return res
}

// Chain returns the live nodes stably sorted by ascending x.
func Chain(nodes []*model.SensorNode) []*model.SensorNode {
	chain := model.AliveNodes(nodes)
	slices.SortStableFunc(chain, func(a, b *model.SensorNode) int {
		return cmp.Compare(a.Position.X, b.Position.X)
	})
	return chain
}

package core

import (
	"math/rand/v2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// LEACHRouter elects fresh cluster heads every round. Election is
// memoryless: no record of past heads is kept between rounds.
type LEACHRouter struct {
	params Params
	rng    *rand.Rand
}

func (r *LEACHRouter) Protocol() model.Protocol { return model.ProtocolLEACH }

// HeadCount is the number of cluster heads elected among alive nodes.
func HeadCount(alive int) int {
	return max(1, alive/10)
}

// Route elects heads, relays member traffic through the nearest head and
// uplinks from every head. Heads always count their packets as delivered,
// even when the uplink drains them.
func (r *LEACHRouter) Route(nodes []*model.SensorNode, packets int) RoundResult {
	alive := model.AliveNodes(nodes)
	if len(alive) == 0 {
		return RoundResult{Nodes: nodes, Edges: []model.Edge{}}
	}

	heads := r.electHeads(alive)
	isHead := make(map[*model.SensorNode]bool, len(heads))
	for _, h := range heads {
		isHead[h] = true
	}

	res := RoundResult{Nodes: nodes, Edges: make([]model.Edge, 0, len(alive))}
	bs := r.params.BaseStation
	em := r.params.Energy

	// Every node in the round-start snapshot takes part, even if an
	// earlier charge in this round killed it; UseEnergy ignores the dead.
	for _, n := range alive {
		if isHead[n] {
			d := Distance(n.Position, bs)
			n.UseEnergy(em.TransmitCost(d, em.LEACHDivisor))
			res.Delivered += packets
			res.Edges = append(res.Edges, model.Edge{From: n.Position, To: bs})
			continue
		}

		ch := nearest(n.Position, heads)
		d := Distance(n.Position, ch.Position)
		n.UseEnergy(em.TransmitCost(d, em.LEACHDivisor))
		ch.UseEnergy(em.ReceiveCost())
		res.Edges = append(res.Edges, model.Edge{From: n.Position, To: ch.Position})
	}
	return res
}

// electHeads samples HeadCount(len(alive)) distinct nodes uniformly.
func (r *LEACHRouter) electHeads(alive []*model.SensorNode) []*model.SensorNode {
	k := HeadCount(len(alive))
	perm := r.rng.Perm(len(alive))
	heads := make([]*model.SensorNode, k)
	for i := range k {
		heads[i] = alive[perm[i]]
	}
	return heads
}

// nearest returns the candidate closest to p; ties go to the earliest.
func nearest(p model.Point, candidates []*model.SensorNode) *model.SensorNode {
	best := candidates[0]
	bestDist := Distance(p, best.Position)
	for _, c := range candidates[1:] {
		if d := Distance(p, c.Position); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

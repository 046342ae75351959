package core

import (
	"math/rand/v2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// CreatePopulation places n fully charged nodes at random lattice points in
// field. IDs run from 0 to n-1 in creation order.
func CreatePopulation(n int, field Field, rng *rand.Rand) []*model.SensorNode {
	if n <= 0 {
		return []*model.SensorNode{}
	}
	nodes := make([]*model.SensorNode, n)
	for i := range n {
		nodes[i] = model.NewSensorNode(i, field.RandomPoint(rng))
	}
	return nodes
}

// newRand builds the PCG stream used for one run. The stream number keeps
// runs that share a seed (one per protocol in a comparison) independent.
func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

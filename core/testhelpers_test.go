package core

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/signalsfoundry/wsn-simulator/model"
)

const eps = 1e-12

func testRand() *rand.Rand {
	return newRand(42, 0)
}

func nodesAt(points ...model.Point) []*model.SensorNode {
	nodes := make([]*model.SensorNode, len(points))
	for i, p := range points {
		nodes[i] = model.NewSensorNode(i, p)
	}
	return nodes
}

func assertEnergy(t *testing.T, n *model.SensorNode, want float64) {
	t.Helper()
	if math.Abs(n.Energy-want) > eps {
		t.Fatalf("node %d energy = %.15f, want %.15f", n.ID, n.Energy, want)
	}
}

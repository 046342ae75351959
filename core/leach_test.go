package core

import (
	"testing"

	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestHeadCount(t *testing.T) {
	cases := map[int]int{1: 1, 9: 1, 10: 1, 19: 1, 20: 2, 25: 2, 150: 15}
	for alive, want := range cases {
		if got := HeadCount(alive); got != want {
			t.Errorf("HeadCount(%d) = %d, want %d", alive, got, want)
		}
	}
}

func TestLEACHSingleNodeIsHead(t *testing.T) {
	params := DefaultParams()
	nodes := nodesAt(model.Point{X: 50, Y: 55})

	res, err := RunRound(model.ProtocolLEACH, nodes, 3, params, testRand())
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if res.Delivered != 3 {
		t.Fatalf("Delivered = %d, want 3", res.Delivered)
	}
	if len(res.Edges) != 1 || res.Edges[0].To != params.BaseStation {
		t.Fatalf("Edges = %v, want single uplink", res.Edges)
	}
	assertEnergy(t, nodes[0], 1-0.02*60/60)
}

func TestLEACHMemberJoinsHeadAndHeadPaysReceive(t *testing.T) {
	params := DefaultParams()
	params.BaseStation = model.Point{X: 0, Y: 70}
	nodes := nodesAt(model.Point{X: 0, Y: 0}, model.Point{X: 0, Y: 10})

	res, _ := RunRound(model.ProtocolLEACH, nodes, 2, params, testRand())

	if res.Delivered != 2 {
		t.Fatalf("Delivered = %d, want 2 (one head)", res.Delivered)
	}
	if len(res.Edges) != 2 {
		t.Fatalf("Edges = %v, want uplink + member hop", res.Edges)
	}

	var head, member *model.SensorNode
	for _, e := range res.Edges {
		if e.To == params.BaseStation {
			for _, n := range nodes {
				if n.Position == e.From {
					head = n
				} else {
					member = n
				}
			}
		}
	}
	if head == nil {
		t.Fatalf("no uplink edge in %v", res.Edges)
	}

	uplink := Distance(head.Position, params.BaseStation)
	assertEnergy(t, head, 1-0.02*uplink/60-0.01*0.4)
	assertEnergy(t, member, 1-0.02*10/60)

	found := false
	for _, e := range res.Edges {
		if e.From == member.Position && e.To == head.Position {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing member->head edge in %v", res.Edges)
	}
}

func TestLEACHHeadsAlwaysDeliver(t *testing.T) {
	params := DefaultParams()
	nodes := nodesAt(model.Point{X: 0, Y: 0})
	nodes[0].UseEnergy(0.999)

	res, _ := RunRound(model.ProtocolLEACH, nodes, 5, params, testRand())

	if nodes[0].Alive {
		t.Fatalf("head should have died on uplink")
	}
	if res.Delivered != 5 {
		t.Fatalf("Delivered = %d, want 5 even though head died", res.Delivered)
	}
}

func TestLEACHEdgeAndDeliveryCounts(t *testing.T) {
	params := DefaultParams()
	rng := testRand()
	nodes := CreatePopulation(45, params.Field, rng)

	res, _ := RunRound(model.ProtocolLEACH, nodes, 2, params, rng)

	if len(res.Edges) != 45 {
		t.Fatalf("edges = %d, want one per alive node", len(res.Edges))
	}
	heads := 0
	for _, e := range res.Edges {
		if e.To == params.BaseStation {
			heads++
		}
	}
	if heads != HeadCount(45) {
		t.Fatalf("uplinks = %d, want %d", heads, HeadCount(45))
	}
	if res.Delivered != heads*2 {
		t.Fatalf("Delivered = %d, want %d", res.Delivered, heads*2)
	}
}

func TestLEACHNoAliveNodes(t *testing.T) {
	nodes := nodesAt(model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 2})
	for _, n := range nodes {
		n.UseEnergy(2)
	}

	res, _ := RunRound(model.ProtocolLEACH, nodes, 3, DefaultParams(), testRand())
	if res.Delivered != 0 || len(res.Edges) != 0 {
		t.Fatalf("dead network produced traffic: %+v", res)
	}
	if len(res.Nodes) != 2 {
		t.Fatalf("nodes dropped from collection")
	}
}

func TestNearestBreaksTiesByOrder(t *testing.T) {
	heads := nodesAt(model.Point{X: 10, Y: 0}, model.Point{X: -10, Y: 0}, model.Point{X: 0, Y: 10})
	if got := nearest(model.Point{}, heads); got != heads[0] {
		t.Fatalf("nearest picked %v, want first equidistant head", got.Position)
	}
	if got := nearest(model.Point{X: 0, Y: 9}, heads); got != heads[2] {
		t.Fatalf("nearest picked %v, want (0,10)", got.Position)
	}
}

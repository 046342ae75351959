package core

import (
	"testing"

	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestTriggers(t *testing.T) {
	cases := []struct {
		sensed, hard, soft float64
		want               bool
	}{
		{50, 50, 5, true},
		{49.99, 50, 5, false},
		{0, 0, 0, true},
		{3, 0, 5, false},
		{90, 10, 20, true},
	}
	for _, tc := range cases {
		if got := Triggers(tc.sensed, tc.hard, tc.soft); got != tc.want {
			t.Errorf("Triggers(%v, %v, %v) = %v, want %v", tc.sensed, tc.hard, tc.soft, got, tc.want)
		}
	}
}

func TestTEENZeroThresholdAlwaysTransmits(t *testing.T) {
	params := DefaultParams()
	params.HardThreshold = 0
	params.SoftThreshold = 0
	rng := testRand()
	nodes := CreatePopulation(30, params.Field, rng)

	for round := 0; round < 5; round++ {
		alive := len(model.AliveNodes(nodes))
		res, _ := RunRound(model.ProtocolTEEN, nodes, 2, params, rng)
		if res.Delivered != alive*2 {
			t.Fatalf("round %d: Delivered = %d, want %d", round, res.Delivered, alive*2)
		}
		if len(res.Edges) != alive {
			t.Fatalf("round %d: edges = %d, want %d", round, len(res.Edges), alive)
		}
	}
}

func TestTEENUnreachableThresholdIsSilent(t *testing.T) {
	params := DefaultParams()
	params.HardThreshold = SensedMax + 1
	rng := testRand()
	nodes := CreatePopulation(20, params.Field, rng)

	res, _ := RunRound(model.ProtocolTEEN, nodes, 2, params, rng)
	if res.Delivered != 0 || len(res.Edges) != 0 {
		t.Fatalf("silent round produced traffic: %+v", res)
	}
	for _, n := range nodes {
		assertEnergy(t, n, model.InitialEnergy)
	}
}

func TestTEENTriggeredNodePaysUplink(t *testing.T) {
	params := DefaultParams()
	params.HardThreshold = 0
	params.SoftThreshold = 0
	params.BaseStation = model.Point{X: 0, Y: 55}
	nodes := nodesAt(model.Point{})

	res, _ := RunRound(model.ProtocolTEEN, nodes, 1, params, testRand())
	assertEnergy(t, nodes[0], 1-0.02*55/55)
	if res.Delivered != 1 {
		t.Fatalf("Delivered = %d, want 1", res.Delivered)
	}
}

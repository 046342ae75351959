package model

import (
	"math"
	"testing"
)

func TestDistanceTo(t *testing.T) {
	cases := []struct {
		a, b Point
		want float64
	}{
		{Point{0, 0}, Point{3, 4}, 5},
		{Point{50, 115}, Point{50, 115}, 0},
		{Point{-1, -1}, Point{2, 3}, 5},
	}
	for _, tc := range cases {
		if got := tc.a.DistanceTo(tc.b); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%v.DistanceTo(%v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := tc.b.DistanceTo(tc.a); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("distance not symmetric for %v, %v", tc.a, tc.b)
		}
	}
}

package core

import (
	"math/rand/v2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Field is the rectangular deployment area, anchored at the origin.
type Field struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultField is the 100x100 area used unless configured otherwise.
var DefaultField = Field{Width: 100, Height: 100}

// DefaultBaseStation sits just beyond the top edge of DefaultField so every
// node pays a non-trivial uplink cost.
var DefaultBaseStation = model.Point{X: 50, Y: 115}

// RandomPoint draws a lattice point uniformly from [0, Width] x [0, Height],
// both bounds inclusive.
func (f Field) RandomPoint(rng *rand.Rand) model.Point {
	return model.Point{
		X: float64(rng.IntN(f.Width + 1)),
		Y: float64(rng.IntN(f.Height + 1)),
	}
}

// Contains reports whether p lies inside the field, edges included.
func (f Field) Contains(p model.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(f.Width) && p.Y <= float64(f.Height)
}

// Distance is the Euclidean distance between two points.
func Distance(a, b model.Point) float64 {
	return a.DistanceTo(b)
}

package metrics

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// Radial maps a position to a radius.
type Radial interface {
	Of(x dynamo.Vec4) float64
}

// MinRadius is the closest approach to the center over all elements.
type MinRadius struct {
	name    string
	radius  Radial
	min     float64
	samples int
}

func NewMinRadius(r Radial) *MinRadius {
	return &MinRadius{
		name:   "min_radius",
		radius: r,
		min:    math.Inf(1),
	}
}

func (m *MinRadius) Name() string { return m.name }

func (m *MinRadius) Observe(_ float64, b dynamo.Batch) {
	for _, p := range b.Elems {
		m.min = math.Min(m.min, m.radius.Of(p.X))
	}
	m.samples++
}

// Value is +Inf before any sample.
func (m *MinRadius) Value() float64 { return m.min }

func (m *MinRadius) Reset() {
	m.min = math.Inf(1)
	m.samples = 0
}

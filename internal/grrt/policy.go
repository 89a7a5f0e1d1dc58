package grrt

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// RadialCoordinate is the Kerr-Schild radius r of a position for spin a.
type RadialCoordinate struct {
	Spin float64
}

func (c RadialCoordinate) Of(x dynamo.Vec4) float64 {
	aa := c.Spin * c.Spin
	zz := x[3] * x[3]
	k := 0.5 * (x[1]*x[1] + x[2]*x[2] + zz - aa)
	return math.Sqrt(math.Sqrt(k*k+aa*zz) + k)
}

// OblateDistance is the distance of a position from the ring singularity.
type OblateDistance struct {
	Spin float64
}

func (d OblateDistance) Of(x dynamo.Vec4) float64 {
	dR := math.Sqrt(x[1]*x[1]+x[2]*x[2]) - math.Abs(d.Spin)
	return math.Sqrt(dR*dR + x[3]*x[3])
}

// UpperBound shrinks the step towards the center: r*Factor + 1.
type UpperBound struct {
	Radius RadialCoordinate
	Factor float64
}

func (b UpperBound) Bound(_ float64, s dynamo.Tangent) float64 {
	return b.Radius.Of(s.X)*b.Factor + 1
}

// LowerBound is a constant minimum step.
type LowerBound struct {
	H float64
}

func (b LowerBound) Bound(float64, dynamo.Tangent) float64 { return b.H }

// HorizonFilter stops a geodesic once it comes within Eps of the horizon.
type HorizonFilter struct {
	Radius  RadialCoordinate
	Horizon float64
	Eps     float64
}

func (f HorizonFilter) Continue(_ float64, s dynamo.Tangent) bool {
	return f.Radius.Of(s.X) >= f.Horizon+f.Eps
}

// RingFilter stops a geodesic once it comes within Eps of the ring
// singularity. Used when there is no horizon to stop at.
type RingFilter struct {
	Distance OblateDistance
	Eps      float64
}

func (f RingFilter) Continue(_ float64, s dynamo.Tangent) bool {
	return f.Distance.Of(s.X) >= f.Eps
}

// Package icond seeds unconstrained initial conditions: camera rays for
// pixels on an observer's screen and spherical photon orbits.
package icond

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// CameraGeometry places a distant observer. Angles are in radians.
type CameraGeometry struct {
	Distance      float64
	Inclination   float64
	PositionAngle float64
}

// NewCameraGeometry converts the inclination and position angle from degrees.
func NewCameraGeometry(distance, incDeg, paDeg float64) CameraGeometry {
	return CameraGeometry{
		Distance:      distance,
		Inclination:   incDeg * math.Pi / 180,
		PositionAngle: paDeg * math.Pi / 180,
	}
}

// Camera returns the seed for the pixel at screen offset (alpha, beta): a
// point on the screen plane and the outward line of sight as velocity.
// Tracing toward the hole means integrating backward.
func Camera(g CameraGeometry, alpha, beta float64) dynamo.Tangent {
	si, ci := math.Sincos(g.Inclination)
	sj, cj := math.Sincos(g.PositionAngle)

	R0 := g.Distance*si - beta*ci
	z := g.Distance*ci + beta*si

	return dynamo.Tangent{
		X: dynamo.Vec4{0, R0*cj - alpha*sj, R0*sj + alpha*cj, z},
		V: dynamo.Vec4{1, si * cj, si * sj, ci},
	}
}

package icond

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

var ErrNoOrbit = errors.New("icond: no spherical photon orbit at this radius")

// schwarzschildTol is how close to r = 3 a non-rotating orbit must be.
const schwarzschildTol = 1e-9

// SphericalOrbit seeds a photon on the spherical orbit of Boyer-Lindquist
// radius r around a unit-mass Kerr hole, starting on the equator. The
// velocity's time component is left for the constraint solver.
func SphericalOrbit(spin, r float64) (dynamo.Tangent, error) {
	if r <= 1 || math.IsNaN(r) {
		return dynamo.Tangent{}, fmt.Errorf("%w: r=%g", ErrNoOrbit, r)
	}

	a := spin
	aa := a * a

	// Impact parameter Φ = L/E and Carter constant Q/E².
	var phi, q float64
	if aa < 1e-24 {
		if math.Abs(r-3) > schwarzschildTol {
			return dynamo.Tangent{}, fmt.Errorf("%w: r=%g with spin=0", ErrNoOrbit, r)
		}
		phi, q = math.Sqrt(27), 0
	} else {
		rm1 := r - 1
		phi = -(r*r*r - 3*r*r + aa*r + aa) / (a * rm1)
		q = -r * r * r * (r*r*r - 6*r*r + 9*r - 4*aa) / (aa * rm1 * rm1)
		if q < 0 {
			return dynamo.Tangent{}, fmt.Errorf("%w: r=%g spin=%g (Q=%g)", ErrNoOrbit, r, spin, q)
		}
	}

	rr := r * r
	delta := rr - 2*r + aa
	w := rr + aa - a*phi

	// Equatorial BL momentum with E = 1; p^r vanishes on the orbit, so the
	// Kerr-Schild t and φ components coincide with the BL ones.
	pt := ((rr+aa)*w/delta - a*(a-phi)) / rr
	pphi := (a*w/delta - (a - phi)) / rr
	ptheta := math.Sqrt(q) / rr

	return dynamo.Tangent{
		X: dynamo.Vec4{0, r, a, 0},
		V: dynamo.Vec4{pt, -a * pphi, r * pphi, -r * ptheta},
	}, nil
}

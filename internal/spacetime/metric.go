// Package spacetime holds the metrics geodesics are integrated through and
// the geodesic equation built from them.
package spacetime

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// Tensor is a rank-2 tensor in Kerr-Schild Cartesian components.
type Tensor [4][4]float64

// Metric is a spacetime metric evaluated at a position.
type Metric interface {
	At(x dynamo.Vec4) Tensor
	Inverse(x dynamo.Vec4) Tensor
}

// Dot returns g(u, v).
func Dot(g Tensor, u, v dynamo.Vec4) float64 {
	sum := 0.0
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum += g[i][j] * u[i] * v[j]
		}
	}
	return sum
}

// Minkowski is flat spacetime with signature (-, +, +, +).
type Minkowski struct{}

func (Minkowski) At(dynamo.Vec4) Tensor      { return eta() }
func (Minkowski) Inverse(dynamo.Vec4) Tensor { return eta() }

func eta() Tensor {
	return Tensor{
		{-1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// KerrSchild is the Kerr-Newman metric in Kerr-Schild Cartesian coordinates
// with unit mass: g = η + f l⊗l.
type KerrSchild struct {
	Spin   float64
	Charge float64
}

func NewKerrSchild(spin, charge float64) *KerrSchild {
	return &KerrSchild{Spin: spin, Charge: charge}
}

// Horizon returns the outer horizon radius 1 + sqrt(1 - a² - q²), if any.
func (m *KerrSchild) Horizon() (float64, bool) {
	d := 1 - m.Spin*m.Spin - m.Charge*m.Charge
	if d < 0 {
		return math.NaN(), false
	}
	return 1 + math.Sqrt(d), true
}

// Radius is the Kerr-Schild radial coordinate of x.
func (m *KerrSchild) Radius(x dynamo.Vec4) float64 {
	aa := m.Spin * m.Spin
	zz := x[3] * x[3]
	k := 0.5 * (x[1]*x[1] + x[2]*x[2] + zz - aa)
	return math.Sqrt(math.Sqrt(k*k+aa*zz) + k)
}

func (m *KerrSchild) null(x dynamo.Vec4) (float64, dynamo.Vec4) {
	a := m.Spin
	aa := a * a
	r := m.Radius(x)
	rr := r * r
	z := x[3]

	f := rr * (2*r - m.Charge*m.Charge) / (rr*rr + aa*z*z)
	l := dynamo.Vec4{
		1,
		(r*x[1] + a*x[2]) / (rr + aa),
		(r*x[2] - a*x[1]) / (rr + aa),
		z / r,
	}
	return f, l
}

func (m *KerrSchild) At(x dynamo.Vec4) Tensor {
	f, l := m.null(x)
	g := eta()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			g[i][j] += f * l[i] * l[j]
		}
	}
	return g
}

// Inverse uses η^{μν} - f l^μ l^ν, exact because l is null under η.
func (m *KerrSchild) Inverse(x dynamo.Vec4) Tensor {
	f, l := m.null(x)
	l[0] = -l[0]
	g := eta()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			g[i][j] -= f * l[i] * l[j]
		}
	}
	return g
}

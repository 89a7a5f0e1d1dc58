package spacetime

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// relStep scales the finite-difference step with distance from the origin.
const relStep = 1e-5

// Derivatives returns dg[λ][μ][ν] = ∂_λ g_μν by central differences.
func Derivatives(m Metric, x dynamo.Vec4) [4]Tensor {
	step := relStep * math.Max(1, math.Sqrt(x[1]*x[1]+x[2]*x[2]+x[3]*x[3]))

	jac := mat.NewDense(16, 4, nil)
	fd.Jacobian(jac, func(y, p []float64) {
		var at dynamo.Vec4
		copy(at[:], p)
		g := m.At(at)
		for i := 0; i < 4; i++ {
			copy(y[4*i:4*i+4], g[i][:])
		}
	}, x[:], &fd.JacobianSettings{Formula: fd.Central, Step: step})

	var dg [4]Tensor
	for l := 0; l < 4; l++ {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				dg[l][i][j] = jac.At(4*i+j, l)
			}
		}
	}
	return dg
}

// Acceleration returns -Γ^α_μν v^μ v^ν at x.
func Acceleration(m Metric, x, v dynamo.Vec4) dynamo.Vec4 {
	dg := Derivatives(m, x)
	ginv := m.Inverse(x)

	// Γ_βμν v^μ v^ν = ∂_μ g_βν v^μ v^ν - ½ ∂_β g_μν v^μ v^ν
	var lowered dynamo.Vec4
	for b := 0; b < 4; b++ {
		sum := 0.0
		for mu := 0; mu < 4; mu++ {
			for nu := 0; nu < 4; nu++ {
				sum += (dg[mu][b][nu] - 0.5*dg[b][mu][nu]) * v[mu] * v[nu]
			}
		}
		lowered[b] = sum
	}

	var acc dynamo.Vec4
	for a := 0; a < 4; a++ {
		sum := 0.0
		for b := 0; b < 4; b++ {
			sum += ginv[a][b] * lowered[b]
		}
		acc[a] = -sum
	}
	return acc
}

// Geodesic is the geodesic equation of a metric as a first-order system in
// the flattened state (x, v).
type Geodesic struct {
	Metric Metric
}

func (g Geodesic) StateDim() int { return dynamo.StateDim }

func (g Geodesic) Derive(s dynamo.State, _ float64) dynamo.State {
	p := dynamo.TangentOf(s)
	acc := Acceleration(g.Metric, p.X, p.V)

	ds := make(dynamo.State, dynamo.StateDim)
	copy(ds[:4], p.V[:])
	copy(ds[4:], acc[:])
	return ds
}

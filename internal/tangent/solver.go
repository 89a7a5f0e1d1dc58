// Package tangent projects candidate velocities onto the null and unit
// timelike constraint surfaces of a metric.
package tangent

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/spacetime"
)

var ErrUnattainable = errors.New("tangent: constraint cannot be satisfied")

type Kind int

const (
	Null Kind = iota
	Timelike
)

func (k Kind) String() string {
	if k == Timelike {
		return "timelike"
	}
	return "null"
}

// Target is the value of g(v, v) the constraint enforces.
func (k Kind) Target() float64 {
	if k == Timelike {
		return -1
	}
	return 0
}

// ConstraintError reports the position and velocity a projection failed at.
type ConstraintError struct {
	Kind Kind
	X    dynamo.Vec4
	V    dynamo.Vec4
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("tangent: no %s velocity at x=%v from v=%v", e.Kind, e.X, e.V)
}

func (e *ConstraintError) Unwrap() error { return ErrUnattainable }

type Solver struct {
	Metric spacetime.Metric
}

func New(m spacetime.Metric) *Solver {
	return &Solver{Metric: m}
}

func (s *Solver) Project(x, v dynamo.Vec4, kind Kind) (dynamo.Vec4, error) {
	if kind == Timelike {
		return s.Normalize(x, v)
	}
	return s.Nullify(x, v)
}

// Nullify keeps the spatial components of v and solves g(v, v) = 0 for v^t,
// taking the larger root.
func (s *Solver) Nullify(x, v dynamo.Vec4) (dynamo.Vec4, error) {
	return s.solveTime(x, v, Null)
}

// Normalize keeps the spatial components of v and solves g(v, v) = -1 for
// v^t, taking the larger root. The seed's own v^t is ignored.
func (s *Solver) Normalize(x, v dynamo.Vec4) (dynamo.Vec4, error) {
	return s.solveTime(x, v, Timelike)
}

// solveTime solves g_tt t² + 2 g_ti v^i t + g_ij v^i v^j = target for t.
func (s *Solver) solveTime(x, v dynamo.Vec4, kind Kind) (dynamo.Vec4, error) {
	g := s.Metric.At(x)

	A := g[0][0]
	B := 0.0
	C := -kind.Target()
	for i := 1; i < 4; i++ {
		B += g[0][i] * v[i]
		for j := 1; j < 4; j++ {
			C += g[i][j] * v[i] * v[j]
		}
	}

	var vt float64
	if A == 0 {
		if B == 0 {
			return v, &ConstraintError{Kind: kind, X: x, V: v}
		}
		vt = -C / (2 * B)
	} else {
		D := B*B - A*C
		if D < 0 {
			return v, &ConstraintError{Kind: kind, X: x, V: v}
		}
		sq := math.Sqrt(D)
		vt = math.Max((-B+sq)/A, (-B-sq)/A)
	}

	out := v
	out[0] = vt
	if !dynamo.State(out[:]).IsValid() {
		return v, &ConstraintError{Kind: kind, X: x, V: v}
	}
	return out, nil
}

// Residual returns g(v, v) minus the constraint target.
func (s *Solver) Residual(x, v dynamo.Vec4, kind Kind) float64 {
	return spacetime.Dot(s.Metric.At(x), v, v) - kind.Target()
}

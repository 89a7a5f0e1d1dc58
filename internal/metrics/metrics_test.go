package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
	"github.com/san-kum/geodesim/internal/spacetime"
	"github.com/san-kum/geodesim/internal/tangent"
)

type cartesian struct{}

func (cartesian) Of(x dynamo.Vec4) float64 {
	return math.Sqrt(x[1]*x[1] + x[2]*x[2] + x[3]*x[3])
}

func batch(ps ...dynamo.Tangent) dynamo.Batch {
	b := dynamo.NewBatch(len(ps))
	copy(b.Elems, ps)
	return b
}

func TestConstraintDrift(t *testing.T) {
	m := NewConstraintDrift(spacetime.Minkowski{}, tangent.Null)

	m.Observe(0, batch(dynamo.Tangent{V: dynamo.Vec4{1, 1, 0, 0}}))
	if m.Value() != 0 {
		t.Errorf("null ray drift = %g", m.Value())
	}

	m.Observe(1, batch(
		dynamo.Tangent{V: dynamo.Vec4{1, 0.5, 0, 0}},
		dynamo.Tangent{V: dynamo.Vec4{1, 0, 1, 1}},
	))
	if math.Abs(m.Value()-1) > 1e-12 {
		t.Errorf("drift = %g, want 1", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestMinRadius(t *testing.T) {
	m := NewMinRadius(cartesian{})
	if !math.IsInf(m.Value(), 1) {
		t.Errorf("empty min radius = %g", m.Value())
	}

	m.Observe(0, batch(dynamo.Tangent{X: dynamo.Vec4{0, 3, 4, 0}}, dynamo.Tangent{X: dynamo.Vec4{0, 10, 0, 0}}))
	m.Observe(1, batch(dynamo.Tangent{X: dynamo.Vec4{0, 6, 0, 0}}, dynamo.Tangent{X: dynamo.Vec4{0, 0, 0, 2}}))
	if m.Value() != 2 {
		t.Errorf("min radius = %g, want 2", m.Value())
	}
}

func TestSummarize(t *testing.T) {
	r := &geode.Result{
		Lambdas: []float64{0, 1},
		States: []dynamo.Batch{
			batch(dynamo.Tangent{X: dynamo.Vec4{0, 5, 0, 0}}, dynamo.Tangent{X: dynamo.Vec4{0, 8, 0, 0}}),
			batch(dynamo.Tangent{X: dynamo.Vec4{0, 4, 0, 0}}, dynamo.Tangent{X: dynamo.Vec4{0, 9, 0, 0}}),
		},
	}

	got := Summarize(r, []bool{true, false, false, true}, NewMinRadius(cartesian{}))
	if got["min_radius"] != 4 {
		t.Errorf("min_radius = %g", got["min_radius"])
	}
	if got["captured"] != 0.5 {
		t.Errorf("captured = %g", got["captured"])
	}
	if Captured(nil) != 0 {
		t.Error("captured of nothing should be 0")
	}
}

package geode

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/spacetime"
)

func straightBatch(vx ...float64) dynamo.Batch {
	b := dynamo.NewBatch(len(vx))
	for i, v := range vx {
		b.Elems[i] = dynamo.Tangent{V: dynamo.Vec4{1, v, 0, 0}}
	}
	return b
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(spacetime.Minkowski{}, 0, dynamo.Batch{}, Config{H: 1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("empty batch: got %v", err)
	}
	if _, err := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 0}); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("zero step: got %v", err)
	}
	if _, err := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1, Stepper: "leapfrog"}); err == nil {
		t.Error("unknown stepper accepted")
	}
}

func TestExtendFlat(t *testing.T) {
	g, err := New(spacetime.Minkowski{}, 0, straightBatch(0.5, -0.25), Config{H: 1})
	if err != nil {
		t.Fatal(err)
	}

	r, err := g.Extend(context.Background(), 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Lambdas) != 5 || len(r.States) != 5 {
		t.Fatalf("got %d samples, want 5", len(r.Lambdas))
	}
	for k, lam := range r.Lambdas {
		if math.Abs(lam-float64(k)) > 1e-12 {
			t.Errorf("lambda[%d] = %g", k, lam)
		}
		got := r.States[k].Elems[0].X
		if math.Abs(got[0]-lam) > 1e-9 || math.Abs(got[1]-0.5*lam) > 1e-9 {
			t.Errorf("sample %d: %v", k, got)
		}
	}

	r, err = g.Extend(context.Background(), 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Lambdas) != 6 || r.Lambdas[5] != 6 {
		t.Errorf("lambdas after second extension: %v", r.Lambdas)
	}
	if x := r.Final().Elems[1].X[1]; math.Abs(x+1.5) > 1e-9 {
		t.Errorf("x = %g, want -1.5", x)
	}
}

func TestExtendZeroIsNoop(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1})
	before := g.Record()
	after, err := g.Extend(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Lambdas) != len(before.Lambdas) {
		t.Errorf("zero extension grew the record: %d -> %d", len(before.Lambdas), len(after.Lambdas))
	}
}

func TestExtendDirection(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1})
	if _, err := g.Extend(context.Background(), -3, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Extend(context.Background(), 1, 0); !errors.Is(err, dynamo.ErrDirection) {
		t.Errorf("got %v, want ErrDirection", err)
	}
	if n := len(g.Record().Lambdas); n != 4 {
		t.Errorf("failed extension changed the record: %d samples", n)
	}
}

func stopAt(limit float64) Filter {
	return FilterFunc(func(_ float64, s dynamo.Tangent) bool { return s.X[1] < limit })
}

func TestFilterFreezes(t *testing.T) {
	g, err := New(spacetime.Minkowski{}, 0, straightBatch(1, 0.1), Config{H: 1, Filter: stopAt(4.5)})
	if err != nil {
		t.Fatal(err)
	}
	r, err := g.Extend(context.Background(), 10, 10)
	if err != nil {
		t.Fatal(err)
	}

	halted := g.Halted()
	if !halted[0] || halted[1] {
		t.Fatalf("halted = %v", halted)
	}
	for k := 5; k < len(r.States); k++ {
		if x := r.States[k].Elems[0].X[1]; math.Abs(x-4) > 1e-9 {
			t.Errorf("sample %d: frozen x = %g, want 4", k, x)
		}
	}
	if x := r.Final().Elems[1].X[1]; math.Abs(x-1) > 1e-9 {
		t.Errorf("live element x = %g, want 1", x)
	}

	// frozen elements stay frozen on further extension
	r, _ = g.Extend(context.Background(), 5, 0)
	if x := r.Final().Elems[0].X[1]; math.Abs(x-4) > 1e-9 {
		t.Errorf("after extension: x = %g", x)
	}
}

func TestFilterAtStart(t *testing.T) {
	b := straightBatch(1)
	b.Elems[0].X[1] = 9
	g, err := New(spacetime.Minkowski{}, 0, b, Config{H: 1, Filter: stopAt(5)})
	if err != nil {
		t.Fatal(err)
	}
	r, _ := g.Extend(context.Background(), 3, 0)
	if x := r.Final().Elems[0].X[1]; x != 9 {
		t.Errorf("x = %g, want 9", x)
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1, 0.1), Config{H: 1, Filter: stopAt(4.5)})
	if _, err := g.Extend(context.Background(), 10, 10); err != nil {
		t.Fatal(err)
	}
	before := g.Record()

	r, err := g.Evaluate(context.Background(), []float64{7, 2.5, 20}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.States) != 3 || r.Lambdas[1] != 2.5 {
		t.Fatalf("result = %+v", r.Lambdas)
	}

	want := [][2]float64{{4, 0.7}, {2.5, 0.25}, {4, 2}}
	for q, w := range want {
		for i := range w {
			if x := r.States[q].Elems[i].X[1]; math.Abs(x-w[i]) > 1e-9 {
				t.Errorf("lambda=%g elem %d: x = %g, want %g", r.Lambdas[q], i, x, w[i])
			}
		}
	}

	after := g.Record()
	if len(after.Lambdas) != len(before.Lambdas) {
		t.Fatal("evaluate changed record length")
	}
	for k := range before.States {
		for i := range before.States[k].Elems {
			if before.States[k].Elems[i] != after.States[k].Elems[i] {
				t.Errorf("record changed at sample %d element %d", k, i)
			}
		}
	}
}

func TestEvaluateBeforeStart(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1})
	r, err := g.Evaluate(context.Background(), []float64{-2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if x := r.States[0].Elems[0].X[1]; math.Abs(x+2) > 1e-9 {
		t.Errorf("x = %g, want -2", x)
	}
}

func TestFloat32Rounding(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1.0/3), Config{H: 1, Precision: dynamo.Float32})
	r, err := g.Extend(context.Background(), 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range r.States {
		for _, v := range b.Elems[0].X {
			if v != float64(float32(v)) {
				t.Errorf("component %v is not float32-representable", v)
			}
		}
	}
}

func TestCancelledContext(t *testing.T) {
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Extend(ctx, 5, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestMaxSteps(t *testing.T) {
	tiny := StepBoundFunc(func(float64, dynamo.Tangent) float64 { return 0.01 })
	g, _ := New(spacetime.Minkowski{}, 0, straightBatch(1), Config{H: 1, HUpper: tiny, MaxSteps: 10})
	_, err := g.Extend(context.Background(), 1, 1)
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) || !errors.Is(err, dynamo.ErrTooManySteps) {
		t.Errorf("got %v, want SimulationError wrapping ErrTooManySteps", err)
	}
}

func TestUpperBoundKeepsAccuracy(t *testing.T) {
	ks := spacetime.NewKerrSchild(0.5, 0)
	b := dynamo.NewBatch()
	b.Elems[0] = dynamo.Tangent{X: dynamo.Vec4{0, 20, 0, 0}, V: dynamo.Vec4{1, 0, 0.2, 0}}
	bound := StepBoundFunc(func(_ float64, s dynamo.Tangent) float64 { return 0.5 * ks.Radius(s.X) })

	for _, stepper := range []string{"rk45", "rk4"} {
		g, err := New(ks, 0, b, Config{H: 1, HUpper: bound, Stepper: stepper})
		if err != nil {
			t.Fatal(err)
		}
		r, err := g.Extend(context.Background(), 5, 0)
		if err != nil {
			t.Fatalf("%s: %v", stepper, err)
		}
		if !r.Final().Elems[0].IsValid() {
			t.Errorf("%s: invalid final state", stepper)
		}
	}
}

package grrt

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/icond"
)

var tracer = otel.Tracer("github.com/san-kum/geodesim/internal/grrt")

// pixelChunk keeps goroutine overhead below the cost of a chunk.
const pixelChunk = 64

// SetPixels stages one null ray per screen offset (a[i], b[i]). The staged
// batch has the shape of a and b; each ray depends only on its own offset.
func (s *Session) SetPixels(a, b dynamo.Grid) error {
	if !dynamo.SameShape(a.Shape, b.Shape) || a.Len() != b.Len() {
		return fmt.Errorf("grrt: pixel grids %v and %v: %w", a.Shape, b.Shape, dynamo.ErrDimensionMismatch)
	}
	if s.camera == nil {
		return ErrNoCamera
	}
	geom := *s.camera

	ctx, span := tracer.Start(context.Background(), "grrt.SetPixels",
		trace.WithAttributes(attribute.Int("pixels", a.Len())))
	defer span.End()

	out := dynamo.NewBatch(a.Shape...)
	err := dynamo.ParallelFor(ctx, a.Len(), pixelChunk, s.workers, func(_ context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			p := icond.Camera(geom, s.precision.Round(a.Data[i]), s.precision.Round(b.Data[i]))
			v, err := s.solver.Nullify(p.X, p.V)
			if err != nil {
				return fmt.Errorf("pixel %d: %w", i, err)
			}
			out.Elems[i] = dynamo.Tangent{X: s.precision.RoundVec(p.X), V: s.precision.RoundVec(v)}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.stage(out)
	return nil
}

func centered(fov float64, n int) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = fov * ((float64(i)+0.5)/float64(n) - 0.5)
	}
	return axis
}

// SetImage stages an n by n image of side fov centered on (alpha0, beta0).
// The first index runs along alpha.
func (s *Session) SetImage(fov float64, n int, alpha0, beta0 float64) error {
	if n <= 0 {
		return fmt.Errorf("grrt: image size %d: %w", n, dynamo.ErrParameterBounds)
	}
	axis := centered(fov, n)
	a, b := dynamo.NewGrid(n, n), dynamo.NewGrid(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(axis[i]+alpha0, i, j)
			b.Set(axis[j]+beta0, i, j)
		}
	}
	return s.SetPixels(a, b)
}

// SetAxis stages n pixels on a line through the screen at position angle
// paDeg, measured from the beta axis.
func (s *Session) SetAxis(fov float64, n int, paDeg, alpha0 float64) error {
	if n <= 0 {
		return fmt.Errorf("grrt: axis size %d: %w", n, dynamo.ErrParameterBounds)
	}
	sp, cp := math.Sincos(paDeg * math.Pi / 180)
	a, b := dynamo.NewGrid(n), dynamo.NewGrid(n)
	for i, r := range centered(fov, n) {
		r += alpha0
		a.Data[i] = r * sp
		b.Data[i] = r * cp
	}
	return s.SetPixels(a, b)
}

// SetRing stages n pixels evenly spaced on a circle of radius r.
func (s *Session) SetRing(r float64, n int) error {
	if n <= 0 {
		return fmt.Errorf("grrt: ring size %d: %w", n, dynamo.ErrParameterBounds)
	}
	a, b := dynamo.NewGrid(n), dynamo.NewGrid(n)
	for i := 0; i < n; i++ {
		sp, cp := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		a.Data[i] = r * cp
		b.Data[i] = r * sp
	}
	return s.SetPixels(a, b)
}

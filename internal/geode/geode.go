// Package geode integrates batches of geodesics with adaptive steps bounded
// by caller-supplied policies and stopped by a continuation filter.
//
// A Geode keeps an append-only record: a shared grid of affine parameters and
// one batch of states per grid point. Extend grows the record; Evaluate
// solves for states at arbitrary parameters without touching it.
package geode

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/integrators"
	"github.com/san-kum/geodesim/internal/spacetime"
)

var tracer = otel.Tracer("github.com/san-kum/geodesim/internal/geode")

// StepBound limits the magnitude of the next step.
type StepBound interface {
	Bound(lambda float64, s dynamo.Tangent) float64
}

// Filter reports whether an element may continue past the given state.
// Once it returns false the element is frozen for good.
type Filter interface {
	Continue(lambda float64, s dynamo.Tangent) bool
}

type StepBoundFunc func(lambda float64, s dynamo.Tangent) float64

func (f StepBoundFunc) Bound(lambda float64, s dynamo.Tangent) float64 { return f(lambda, s) }

type FilterFunc func(lambda float64, s dynamo.Tangent) bool

func (f FilterFunc) Continue(lambda float64, s dynamo.Tangent) bool { return f(lambda, s) }

type Config struct {
	L         float64 // default extension
	H         float64 // nominal step: first trial step and output spacing
	HUpper    StepBound
	HLower    StepBound // nil means no lower bound
	Filter    Filter    // nil means never stop
	Precision dynamo.Precision
	RTol      float64
	ATol      float64
	MaxSteps  int // per element per leg
	Stepper   string
	Workers   int
}

const (
	defaultRTol32   = 1e-5
	defaultRTol64   = 1e-8
	defaultATol     = 1e-10
	defaultMaxSteps = 100000
	ctxCheckEvery   = 64
)

func (c Config) withDefaults() Config {
	if c.RTol <= 0 {
		c.RTol = defaultRTol64
		if c.Precision == dynamo.Float32 {
			c.RTol = defaultRTol32
		}
	}
	if c.ATol <= 0 {
		c.ATol = defaultATol
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	if c.Stepper == "" {
		c.Stepper = "rk45"
	}
	return c
}

// Result is a slice of trajectory: one batch of states per affine parameter.
type Result struct {
	Lambdas []float64
	States  []dynamo.Batch
}

// Final returns the last batch, or an empty batch for an empty result.
func (r *Result) Final() dynamo.Batch {
	if len(r.States) == 0 {
		return dynamo.Batch{}
	}
	return r.States[len(r.States)-1]
}

type Geode struct {
	sys     dynamo.System
	cfg     Config
	factory integrators.Factory
	shape   []int

	lambdas []float64
	states  []dynamo.Batch

	h      []float64 // adaptive step carried between extensions
	halted []int     // first record index an element is frozen at, or -1
	haltAt []float64 // parameter of the frozen state
	dir    float64   // sign of the record, 0 until the first extension
}

// New seeds a Geode at parameter start with the batch ic.
func New(m spacetime.Metric, start float64, ic dynamo.Batch, cfg Config) (*Geode, error) {
	if ic.Len() == 0 {
		return nil, fmt.Errorf("geode: empty initial batch: %w", dynamo.ErrDimensionMismatch)
	}
	if !(cfg.H > 0) || math.IsInf(cfg.H, 0) {
		return nil, fmt.Errorf("geode: nominal step h=%g: %w", cfg.H, dynamo.ErrParameterBounds)
	}
	cfg = cfg.withDefaults()

	factory, err := integrators.ByName(cfg.Stepper)
	if err != nil {
		return nil, err
	}

	n := ic.Len()
	g := &Geode{
		sys:     spacetime.Geodesic{Metric: m},
		cfg:     cfg,
		factory: factory,
		shape:   append([]int(nil), ic.Shape...),
		h:       make([]float64, n),
		halted:  make([]int, n),
		haltAt:  make([]float64, n),
	}

	first := ic.Clone()
	for i, p := range first.Elems {
		if !p.IsValid() {
			return nil, &dynamo.SimulationError{Element: i, Lambda: start, State: p.State(), Wrapped: dynamo.ErrInvalidState}
		}
		p.X = cfg.Precision.RoundVec(p.X)
		p.V = cfg.Precision.RoundVec(p.V)
		first.Elems[i] = p

		g.h[i] = cfg.H
		g.halted[i] = -1
		if cfg.Filter != nil && !cfg.Filter.Continue(start, p) {
			g.halted[i] = 0
			g.haltAt[i] = start
		}
	}

	g.lambdas = []float64{start}
	g.states = []dynamo.Batch{first}
	return g, nil
}

func (g *Geode) Config() Config { return g.cfg }

// Span is the default extension amount the Geode was configured with.
func (g *Geode) Span() float64 { return g.cfg.L }

func (g *Geode) Len() int { return len(g.h) }

// Halted reports which elements the filter has stopped.
func (g *Geode) Halted() []bool {
	out := make([]bool, len(g.halted))
	for i, idx := range g.halted {
		out[i] = idx >= 0
	}
	return out
}

// Record returns a copy of the accumulated trajectory.
func (g *Geode) Record() *Result {
	r := &Result{
		Lambdas: append([]float64(nil), g.lambdas...),
		States:  make([]dynamo.Batch, len(g.states)),
	}
	for i, b := range g.states {
		r.States[i] = b.Clone()
	}
	return r
}

// Extend advances every element by amount along the affine parameter and
// appends n evenly spaced samples to the record. n <= 0 picks |amount|/h.
// The record is unchanged when an error is returned.
func (g *Geode) Extend(ctx context.Context, amount float64, n int) (_ *Result, err error) {
	ctx, span := tracer.Start(ctx, "geode.Extend", trace.WithAttributes(
		attribute.Float64("amount", amount),
		attribute.Int("elements", g.Len()),
	))
	defer func() { endSpan(span, err) }()

	if amount == 0 || math.IsNaN(amount) {
		return g.Record(), nil
	}
	dir := math.Copysign(1, amount)
	if g.dir != 0 && dir != g.dir {
		return nil, fmt.Errorf("geode: extend by %g: %w", amount, dynamo.ErrDirection)
	}
	if n <= 0 {
		n = int(math.Ceil(math.Abs(amount) / g.cfg.H))
		if n < 1 {
			n = 1
		}
	}
	span.SetAttributes(attribute.Int("samples", n))

	start := g.lambdas[len(g.lambdas)-1]
	last := g.states[len(g.states)-1]
	base := len(g.lambdas)

	targets := make([]float64, n)
	for k := range targets {
		targets[k] = start + amount*float64(k+1)/float64(n)
	}
	targets[n-1] = start + amount

	out := make([]dynamo.Batch, n)
	for k := range out {
		out[k] = dynamo.NewBatch(g.shape...)
	}
	h := append([]float64(nil), g.h...)
	halted := append([]int(nil), g.halted...)
	haltAt := append([]float64(nil), g.haltAt...)

	err = dynamo.ParallelFor(ctx, g.Len(), 1, g.cfg.Workers, func(ctx context.Context, lo, hi int) error {
		stepper := g.stepper()
		for i := lo; i < hi; i++ {
			p := last.Elems[i]
			lam := start
			for k, target := range targets {
				if halted[i] < 0 {
					var stopped bool
					var err error
					p, lam, h[i], stopped, err = g.advance(ctx, stepper, p, lam, target, h[i], g.cfg.MaxSteps)
					if err != nil {
						return &dynamo.SimulationError{Element: i, Lambda: lam, State: p.State(), Wrapped: err}
					}
					if stopped {
						halted[i] = base + k
						haltAt[i] = lam
					}
				}
				out[k].Elems[i] = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.lambdas = append(g.lambdas, targets...)
	g.states = append(g.states, out...)
	g.h, g.halted, g.haltAt = h, halted, haltAt
	g.dir = dir
	return g.Record(), nil
}

// Evaluate solves for the states at the requested parameters, in request
// order, starting from the nearest live record sample of each element. A
// positive n caps the steps per requested value. The record is not modified.
func (g *Geode) Evaluate(ctx context.Context, lambdas []float64, n int) (_ *Result, err error) {
	ctx, span := tracer.Start(ctx, "geode.Evaluate", trace.WithAttributes(
		attribute.Int("requests", len(lambdas)),
		attribute.Int("elements", g.Len()),
	))
	defer func() { endSpan(span, err) }()

	maxSteps := g.cfg.MaxSteps
	if n > 0 {
		maxSteps = n
	}

	out := make([]dynamo.Batch, len(lambdas))
	for q := range out {
		out[q] = dynamo.NewBatch(g.shape...)
	}

	err = dynamo.ParallelFor(ctx, g.Len(), 1, g.cfg.Workers, func(ctx context.Context, lo, hi int) error {
		stepper := g.stepper()
		for i := lo; i < hi; i++ {
			for q, target := range lambdas {
				p, err := g.solve(ctx, stepper, i, target, maxSteps)
				if err != nil {
					return &dynamo.SimulationError{Element: i, Lambda: target, Wrapped: err}
				}
				out[q].Elems[i] = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{Lambdas: append([]float64(nil), lambdas...), States: out}, nil
}

func (g *Geode) solve(ctx context.Context, stepper dynamo.Integrator, i int, target float64, maxSteps int) (dynamo.Tangent, error) {
	live := len(g.lambdas)
	if idx := g.halted[i]; idx >= 0 {
		frozen := g.states[idx].Elems[i]
		if g.dir == 0 || g.dir*(target-g.haltAt[i]) >= 0 {
			return frozen, nil
		}
		live = idx
	}
	if math.IsNaN(target) {
		return dynamo.Tangent{}, fmt.Errorf("lambda is NaN: %w", dynamo.ErrParameterBounds)
	}

	j := 0
	for k := 1; k < live; k++ {
		if math.Abs(target-g.lambdas[k]) < math.Abs(target-g.lambdas[j]) {
			j = k
		}
	}

	p, _, _, _, err := g.advance(ctx, stepper, g.states[j].Elems[i], g.lambdas[j], target, g.h[i], maxSteps)
	return p, err
}

// advance integrates p from a to b. It stops early, returning the last
// accepted state, when a proposed step fails the filter.
func (g *Geode) advance(ctx context.Context, stepper dynamo.Integrator, p dynamo.Tangent, a, b, h float64, maxSteps int) (dynamo.Tangent, float64, float64, bool, error) {
	if a == b {
		return p, a, h, false, nil
	}
	dir := math.Copysign(1, b-a)
	adaptive, isAdaptive := stepper.(dynamo.AdaptiveIntegrator)

	x := p.State()
	lam := a
	h = math.Abs(h)
	if !(h > 0) {
		h = g.cfg.H
	}

	for steps := 0; ; steps++ {
		if steps >= maxSteps {
			return dynamo.TangentOf(x), lam, h, false, dynamo.ErrTooManySteps
		}
		if steps%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return dynamo.TangentOf(x), lam, h, false, err
			}
		}

		cur := dynamo.TangentOf(x)
		hmin := 0.0
		if g.cfg.HLower != nil {
			hmin = math.Abs(g.cfg.HLower.Bound(lam, cur))
		}
		hmax := math.Inf(1)
		if g.cfg.HUpper != nil {
			hmax = math.Abs(g.cfg.HUpper.Bound(lam, cur))
		}

		step := math.Min(math.Max(h, hmin), hmax)
		remaining := math.Abs(b - lam)
		last := step >= remaining
		if last {
			step = remaining
		}

		var next dynamo.State
		if isAdaptive {
			var suggested, ratio float64
			next, suggested, ratio = adaptive.StepAdaptive(g.sys, x, lam, dir*step, g.cfg.RTol)
			suggested = math.Abs(suggested)
			if ratio > 1 && step > hmin {
				h = suggested
				if h < 1e-14*math.Max(1, math.Abs(lam)) {
					return cur, lam, h, false, dynamo.ErrStepTooSmall
				}
				continue
			}
			if !last || suggested > h {
				h = suggested
			}
		} else {
			next = stepper.Step(g.sys, x, lam, dir*step)
		}

		if !next.IsValid() {
			return cur, lam, h, false, dynamo.ErrInvalidState
		}
		for k := range next {
			next[k] = g.cfg.Precision.Round(next[k])
		}

		nlam := lam + dir*step
		if last {
			nlam = b
		}
		if g.cfg.Filter != nil && !g.cfg.Filter.Continue(nlam, dynamo.TangentOf(next)) {
			return cur, lam, h, true, nil
		}

		x = next
		lam = nlam
		if last {
			return dynamo.TangentOf(x), lam, h, false, nil
		}
	}
}

func (g *Geode) stepper() dynamo.Integrator {
	s := g.factory()
	if rk, ok := s.(*integrators.RK45); ok {
		rk.WithAbsTol(g.cfg.ATol)
	}
	return s
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Package grrt drives geodesic integration for ray tracing around a
// Kerr-Newman black hole. A Session stages constrained initial conditions,
// builds an integrator with horizon-aware step bounds and stopping filter,
// then extends or samples the trajectories.
package grrt

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
	"github.com/san-kum/geodesim/internal/icond"
	"github.com/san-kum/geodesim/internal/log"
	"github.com/san-kum/geodesim/internal/spacetime"
	"github.com/san-kum/geodesim/internal/tangent"
)

var (
	ErrNoInitialConditions = errors.New("grrt: no initial conditions to integrate")
	ErrNoCamera            = errors.New("grrt: camera not set")
)

const (
	defaultFHUpper = 0.75
	defaultEps     = 1e-2
)

type Session struct {
	spin        float64
	charge      float64
	penetrating bool
	precision   dynamo.Precision
	workers     int
	stepper     string

	metric   spacetime.Metric
	solver   *tangent.Solver
	logger   log.Logger
	radius   RadialCoordinate
	distance OblateDistance

	horizon    float64
	hasHorizon bool

	defaults dynamo.Params
	camera   *icond.CameraGeometry
	pending  *dynamo.Batch
	geode    *geode.Geode
}

// New creates a session for spin a and charge q. The horizon radius is
// reported to the logger; it is only used for stopping when the chart is
// not horizon penetrating.
func New(spin, charge float64, opts ...Option) (*Session, error) {
	if !finite(spin) || !finite(charge) || charge < 0 {
		return nil, fmt.Errorf("grrt: spin=%g charge=%g: %w", spin, charge, dynamo.ErrParameterBounds)
	}

	s := &Session{
		spin:     spin,
		charge:   charge,
		logger:   log.New("grrt"),
		radius:   RadialCoordinate{Spin: spin},
		distance: OblateDistance{Spin: spin},
		defaults: dynamo.Params{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metric == nil {
		s.metric = spacetime.NewKerrSchild(spin, charge)
	}
	s.solver = tangent.New(s.metric)

	if reh, ok := spacetime.NewKerrSchild(spin, charge).Horizon(); ok {
		s.logger.Infof("radius of outer event horizon: %g", reh)
		if s.penetrating {
			s.logger.Info("horizon penetrating")
		} else {
			s.horizon, s.hasHorizon = reh, true
		}
	} else {
		s.logger.Info("there is no event horizon")
	}
	if !s.hasHorizon {
		s.horizon = math.NaN()
	}

	return s, nil
}

// Horizon returns the radius geodesics are stopped at, if there is one.
func (s *Session) Horizon() (float64, bool) { return s.horizon, s.hasHorizon }

// Penetrating reports whether the chart is regular across the horizon.
func (s *Session) Penetrating() bool { return s.penetrating }

// Precision is the width staged and integrated states are rounded to.
func (s *Session) Precision() dynamo.Precision { return s.precision }

// Metric is the spacetime geodesics are integrated through.
func (s *Session) Metric() spacetime.Metric { return s.metric }

// Radius is the Kerr-Schild radial coordinate used by the default policies.
func (s *Session) Radius() RadialCoordinate { return s.radius }

// Distance measures from the ring singularity.
func (s *Session) Distance() OblateDistance { return s.distance }

// Defaults returns a copy of the stored control parameters.
func (s *Session) Defaults() dynamo.Params { return s.defaults.Over(nil) }

// Pending reports whether initial conditions are staged for the next build.
func (s *Session) Pending() bool { return s.pending != nil }

// PendingBatch returns a copy of the staged initial conditions.
func (s *Session) PendingBatch() (dynamo.Batch, bool) {
	if s.pending == nil {
		return dynamo.Batch{}, false
	}
	return s.pending.Clone(), true
}

// Integrator returns the current integrator, or nil before the first build.
func (s *Session) Integrator() *geode.Geode { return s.geode }

// SetParticle stages a massive particle at x. The time component of v is
// solved for so that g(v, v) = -1; the spatial components are kept.
func (s *Session) SetParticle(x, v dynamo.Vec4) error {
	u, err := s.solver.Normalize(x, v)
	if err != nil {
		return err
	}
	s.stageOne(x, u)
	return nil
}

// SetPhoton stages a photon at x, solving for the time component of v so
// that g(v, v) = 0.
func (s *Session) SetPhoton(x, v dynamo.Vec4) error {
	u, err := s.solver.Nullify(x, v)
	if err != nil {
		return err
	}
	s.stageOne(x, u)
	return nil
}

// SetSphericalOrbit stages the spherical photon orbit at radius r.
func (s *Session) SetSphericalOrbit(r float64) error {
	p, err := icond.SphericalOrbit(s.spin, r)
	if err != nil {
		return err
	}
	return s.SetPhoton(p.X, p.V)
}

// SetCamera places the observer. Rays are traced backward from the screen,
// so L defaults to -2*rObs.
func (s *Session) SetCamera(rObs, incDeg, paDeg float64) {
	g := icond.NewCameraGeometry(rObs, incDeg, paDeg)
	g.Distance = s.precision.Round(g.Distance)
	g.Inclination = s.precision.Round(g.Inclination)
	g.PositionAngle = s.precision.Round(g.PositionAngle)
	s.camera = &g
	s.defaults = s.defaults.Under(dynamo.Params{"L": -2 * rObs, "h": 0.75 * rObs})
}

// Camera returns the observer set by SetCamera.
func (s *Session) Camera() (icond.CameraGeometry, bool) {
	if s.camera == nil {
		return icond.CameraGeometry{}, false
	}
	return *s.camera, true
}

func (s *Session) stageOne(x, v dynamo.Vec4) {
	b := dynamo.NewBatch()
	b.Elems[0] = dynamo.Tangent{X: s.precision.RoundVec(x), V: s.precision.RoundVec(v)}
	s.stage(b)
	s.defaults = s.defaults.Under(dynamo.Params{"L": 100, "h": 1})
}

func (s *Session) stage(b dynamo.Batch) {
	s.pending = &b
}

// Integrate extends or samples the trajectories. The first call after
// initial conditions are staged builds a new integrator from them; the
// options other than WithSteps only apply to that build.
func (s *Session) Integrate(ctx context.Context, span Span, opts ...IntegrateOption) (*geode.Result, error) {
	var cfg integrateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case s.pending != nil:
		g, err := s.build(*s.pending, cfg)
		if err != nil {
			return nil, err
		}
		s.geode, s.pending = g, nil
	case s.geode == nil:
		return nil, ErrNoInitialConditions
	default:
		if n := cfg.overrides(); n > 0 {
			s.logger.Warningf("ignoring %d overrides: integrator already built", n)
		}
	}

	switch sp := span.(type) {
	case nil:
		return s.geode.Extend(ctx, s.geode.Span(), cfg.steps)
	case Extend:
		return s.geode.Extend(ctx, sp.Amount, cfg.steps)
	case Sample:
		return s.geode.Evaluate(ctx, sp.Lambdas, cfg.steps)
	default:
		return nil, fmt.Errorf("grrt: unknown span %T", span)
	}
}

func (s *Session) build(ic dynamo.Batch, cfg integrateConfig) (*geode.Geode, error) {
	params := s.defaults.Over(cfg.params)

	upper := cfg.upper
	if upper == nil {
		upper = UpperBound{Radius: s.radius, Factor: params.Get("fhupper", defaultFHUpper)}
	}

	lower := cfg.lower
	if fh, ok := params["fhlower"]; ok && lower == nil {
		lower = LowerBound{H: fh}
	}

	filter := cfg.filter
	if filter == nil {
		eps := params.Get("eps", defaultEps)
		if s.hasHorizon {
			filter = HorizonFilter{Radius: s.radius, Horizon: s.horizon, Eps: eps}
		} else {
			filter = RingFilter{Distance: s.distance, Eps: eps}
		}
	}

	return geode.New(s.metric, 0, ic, geode.Config{
		L:         params.Get("L", 100),
		H:         params.Get("h", 1),
		HUpper:    upper,
		HLower:    lower,
		Filter:    filter,
		Precision: s.precision,
		RTol:      params["rtol"],
		ATol:      params["atol"],
		MaxSteps:  int(params["maxsteps"]),
		Stepper:   s.stepper,
		Workers:   s.workers,
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

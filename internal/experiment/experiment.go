package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/geodesim/internal/config"
	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
	"github.com/san-kum/geodesim/internal/grrt"
	"github.com/san-kum/geodesim/internal/storage"
)

// Outcome is the product of one run: the accumulated record, the optional
// sampled grid and the trajectory metrics.
type Outcome struct {
	Record  *geode.Result
	Sampled *geode.Result
	Halted  []bool
	Metrics map[string]float64
}

type Experiment struct {
	cfg     *config.Config
	session *grrt.Session
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup creates the session and stages the configured source.
func (e *Experiment) Setup(opts ...grrt.Option) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	st := e.cfg.Spacetime
	prec, _ := dynamo.ParsePrecision(st.Precision)

	opts = append([]grrt.Option{grrt.WithPrecision(prec), grrt.WithStepper(e.cfg.Integrate.Stepper)}, opts...)
	if st.Penetrating {
		opts = append(opts, grrt.WithHorizonPenetrating())
	}

	s, err := grrt.New(st.Spin, st.Charge, opts...)
	if err != nil {
		return err
	}
	if err := stage(s, e.cfg); err != nil {
		return fmt.Errorf("stage %s: %w", e.cfg.Source.Kind, err)
	}
	e.session = s
	return nil
}

func stage(s *grrt.Session, cfg *config.Config) error {
	src := cfg.Source
	if cfg.UsesCamera() {
		cam := cfg.Camera
		s.SetCamera(cam.Distance, cam.Inclination, cam.PositionAngle)
	}

	img := cfg.Image
	switch src.Kind {
	case config.SourcePhoton:
		return s.SetPhoton(src.X, src.V)
	case config.SourceParticle:
		return s.SetParticle(src.X, src.V)
	case config.SourceOrbit:
		return s.SetSphericalOrbit(src.Radius)
	case config.SourceImage:
		return s.SetImage(img.FOV, img.N, img.Alpha0, img.Beta0)
	case config.SourceAxis:
		return s.SetAxis(img.FOV, img.N, img.Angle, img.Alpha0)
	case config.SourceRing:
		return s.SetRing(img.Radius, img.N)
	}
	return fmt.Errorf("unknown source %q", src.Kind)
}

// Run extends the trajectories by L (the session default when unset) and
// then evaluates the sample grid, if any.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.session == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	ic := e.cfg.Integrate

	opts := []grrt.IntegrateOption{grrt.WithSteps(ic.Samples)}
	for k, v := range ic.Params {
		opts = append(opts, grrt.WithParam(k, v))
	}

	var span grrt.Span
	if ic.L != nil {
		span = grrt.Extend{Amount: *ic.L}
	}
	record, err := e.session.Integrate(ctx, span, opts...)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Record: record, Halted: e.session.Integrator().Halted()}
	if len(ic.Sample) > 0 {
		out.Sampled, err = e.session.Integrate(ctx, grrt.Sample{Lambdas: ic.Sample}, grrt.WithSteps(ic.Samples))
		if err != nil {
			return nil, err
		}
	}

	out.Metrics = Summarize(e.session, e.cfg, out)
	return out, nil
}

func (e *Experiment) Session() *grrt.Session { return e.session }

// Metadata describes the run for the store.
func (e *Experiment) Metadata(out *Outcome) storage.RunMetadata {
	st := e.cfg.Spacetime
	return storage.RunMetadata{
		Name:        e.cfg.Name,
		Spin:        st.Spin,
		Charge:      st.Charge,
		Penetrating: st.Penetrating,
		Source:      e.cfg.Source.Kind,
		Shape:       out.Record.Final().Shape,
		Stepper:     e.cfg.Integrate.Stepper,
		Precision:   st.Precision,
		Metrics:     out.Metrics,
	}
}

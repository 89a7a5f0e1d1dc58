package grrt

import (
	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
	"github.com/san-kum/geodesim/internal/log"
	"github.com/san-kum/geodesim/internal/spacetime"
)

type Option func(*Session)

// WithHorizonPenetrating marks the chart as regular across the horizon, so
// geodesics are not stopped at the horizon radius.
func WithHorizonPenetrating() Option {
	return func(s *Session) { s.penetrating = true }
}

func WithPrecision(p dynamo.Precision) Option {
	return func(s *Session) { s.precision = p }
}

// WithDefaults seeds the control parameters. Later Set* calls only fill in
// keys missing here.
func WithDefaults(p dynamo.Params) Option {
	return func(s *Session) { s.defaults = s.defaults.Over(p) }
}

func WithLogger(l log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

func WithStepper(name string) Option {
	return func(s *Session) { s.stepper = name }
}

// WithMetric replaces the Kerr-Schild metric built from spin and charge.
func WithMetric(m spacetime.Metric) Option {
	return func(s *Session) { s.metric = m }
}

type integrateConfig struct {
	steps  int
	params dynamo.Params
	upper  geode.StepBound
	lower  geode.StepBound
	filter geode.Filter
}

// overrides counts the settings that only matter when an integrator is built.
func (c integrateConfig) overrides() int {
	n := len(c.params)
	for _, set := range []bool{c.upper != nil, c.lower != nil, c.filter != nil} {
		if set {
			n++
		}
	}
	return n
}

type IntegrateOption func(*integrateConfig)

// WithSteps is the sample count hint for Extend and the step cap for Sample.
func WithSteps(n int) IntegrateOption {
	return func(c *integrateConfig) { c.steps = n }
}

func WithParam(name string, v float64) IntegrateOption {
	return func(c *integrateConfig) {
		if c.params == nil {
			c.params = dynamo.Params{}
		}
		c.params[name] = v
	}
}

func WithUpperBound(b geode.StepBound) IntegrateOption {
	return func(c *integrateConfig) { c.upper = b }
}

func WithLowerBound(b geode.StepBound) IntegrateOption {
	return func(c *integrateConfig) { c.lower = b }
}

func WithFilter(f geode.Filter) IntegrateOption {
	return func(c *integrateConfig) { c.filter = f }
}

package metrics

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/spacetime"
	"github.com/san-kum/geodesim/internal/tangent"
)

// ConstraintDrift is the largest |g(v, v) - target| seen, a measure of how
// far the integrator let velocities wander off the null or timelike shell.
type ConstraintDrift struct {
	name     string
	solver   *tangent.Solver
	kind     tangent.Kind
	maxDrift float64
	samples  int
}

func NewConstraintDrift(m spacetime.Metric, kind tangent.Kind) *ConstraintDrift {
	return &ConstraintDrift{
		name:   "constraint_drift",
		solver: tangent.New(m),
		kind:   kind,
	}
}

func (c *ConstraintDrift) Name() string { return c.name }

func (c *ConstraintDrift) Observe(_ float64, b dynamo.Batch) {
	for _, p := range b.Elems {
		r := c.solver.Residual(p.X, p.V, c.kind)
		if math.IsNaN(r) {
			continue
		}
		c.maxDrift = math.Max(c.maxDrift, math.Abs(r))
	}
	c.samples++
}

func (c *ConstraintDrift) Value() float64 { return c.maxDrift }

func (c *ConstraintDrift) Reset() {
	c.maxDrift = 0
	c.samples = 0
}

package analysis

import (
	"math"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent of the flow
// through x0 by trajectory separation, per unit of the integration
// parameter. The copy starts displaced by perturbation along the first
// spatial axis and is pulled back to that distance after every step.
// The time coordinate is left out of the separation.
func LyapunovExponent(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	h, span float64,
	perturbation float64,
) float64 {
	if len(x0) < 2 || !(h > 0) || !(span > 0) || !(perturbation > 0) {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[1] += perturbation

	d0 := perturbation
	lambda := 0.0
	sumLog := 0.0

	for lambda < span {
		step := math.Min(h, span-lambda)
		x = integ.Step(dyn, x, lambda, step)
		xp = integ.Step(dyn, xp, lambda, step)
		lambda += step

		if !x.IsValid() || !xp.IsValid() {
			break
		}

		sep := separation(x, xp)
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if lambda == 0 {
		return 0
	}
	return sumLog / lambda
}

func separation(x, xp dynamo.State) float64 {
	sum := 0.0
	for i := 1; i < len(x); i++ {
		if i == dynamo.StateDim/2 {
			continue
		}
		d := xp[i] - x[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

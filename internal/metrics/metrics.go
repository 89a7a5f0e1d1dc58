// Package metrics summarizes integrated trajectories.
package metrics

import (
	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
)

// Metric accumulates a scalar over the samples of a trajectory record.
type Metric interface {
	Name() string
	Observe(lambda float64, b dynamo.Batch)
	Value() float64
	Reset()
}

// Summarize feeds every sample of r to ms and reports their values along
// with the fraction of halted elements under "captured".
func Summarize(r *geode.Result, halted []bool, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms)+1)
	for _, m := range ms {
		m.Reset()
		for k, lam := range r.Lambdas {
			m.Observe(lam, r.States[k])
		}
		out[m.Name()] = m.Value()
	}
	out["captured"] = Captured(halted)
	return out
}

// Captured is the fraction of elements the continuation filter stopped.
func Captured(halted []bool) float64 {
	if len(halted) == 0 {
		return 0
	}
	n := 0
	for _, h := range halted {
		if h {
			n++
		}
	}
	return float64(n) / float64(len(halted))
}

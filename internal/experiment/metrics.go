package experiment

import (
	"github.com/san-kum/geodesim/internal/config"
	"github.com/san-kum/geodesim/internal/grrt"
	"github.com/san-kum/geodesim/internal/metrics"
	"github.com/san-kum/geodesim/internal/tangent"
)

func DefaultMetrics(s *grrt.Session, cfg *config.Config) []metrics.Metric {
	kind := tangent.Null
	if cfg.Source.Kind == config.SourceParticle {
		kind = tangent.Timelike
	}
	return []metrics.Metric{
		metrics.NewConstraintDrift(s.Metric(), kind),
		metrics.NewMinRadius(s.Radius()),
	}
}

func Summarize(s *grrt.Session, cfg *config.Config, out *Outcome) map[string]float64 {
	return metrics.Summarize(out.Record, out.Halted, DefaultMetrics(s, cfg)...)
}

package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/geodesim/internal/config"
	"github.com/san-kum/geodesim/internal/experiment"
	"github.com/san-kum/geodesim/internal/log"
	"github.com/san-kum/geodesim/internal/storage"
)

var logger = log.New("automation")

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Config is decoded on top of Preset, or on top of
// the defaults when no preset is named.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	Save   bool      `yaml:"save"`
}

// StepResult holds the outcome of one scenario step
type StepResult struct {
	Name    string
	RunID   string
	Metrics map[string]float64
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Resolve builds the configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Name == "" {
		cfg.Name = s.Name
	}
	return cfg, nil
}

// RunScenario executes all steps in order. Steps marked save are written to
// st when it is not nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Infof("running step %d/%d: %s", i+1, len(scenario.Steps), step.Name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Name: cfg.Name, Metrics: out.Metrics}
		if step.Save && st != nil {
			res.RunID, err = st.Save(exp.Metadata(out), out.Record)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, res)
	}

	return results, nil
}

// ParameterSweep runs a configuration across a range of one parameter:
// spin, charge, inclination, radius or distance.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
}

func setParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "spin":
		cfg.Spacetime.Spin = v
	case "charge":
		cfg.Spacetime.Charge = v
	case "inclination":
		cfg.Camera.Inclination = v
	case "distance":
		cfg.Camera.Distance = v
	case "radius":
		cfg.Source.Radius = v
		cfg.Image.Radius = v
	default:
		return fmt.Errorf("parameter %s cannot be swept", name)
	}
	return nil
}

func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := *sweep.Base
		if err := setParam(&cfg, sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		exp := experiment.New(&cfg)
		if err := exp.Setup(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{ParamValue: paramVal, Metrics: out.Metrics})
		logger.Infof("sweep %d/%d: %s=%.4f", i+1, sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

// MonteCarloConfig jitters the spatial velocity of a photon or particle
// source and records which trials are captured.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID   int
	Velocity  [4]float64
	Captured  bool
	MinRadius float64
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig) ([]MonteCarloResult, error) {
	switch mc.Base.Source.Kind {
	case config.SourcePhoton, config.SourceParticle:
	default:
		return nil, fmt.Errorf("monte carlo needs a photon or particle source, got %s", mc.Base.Source.Kind)
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	results := make([]MonteCarloResult, 0, mc.NumTrials)
	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := *mc.Base
		v := cfg.Source.V
		for i := 1; i < 4; i++ {
			v[i] += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		}
		cfg.Source.V = v

		exp := experiment.New(&cfg)
		if err := exp.Setup(); err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		results = append(results, MonteCarloResult{
			TrialID:   trial,
			Velocity:  v,
			Captured:  out.Halted[0],
			MinRadius: out.Metrics["min_radius"],
		})

		if (trial+1)%10 == 0 {
			logger.Infof("monte carlo: %d/%d trials complete", trial+1, mc.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats counts captured trials and finds the closest approach
// among the escaping ones.
func MonteCarloStats(results []MonteCarloResult) (captured, escaped int, closest float64) {
	closest = math.Inf(1)
	for _, r := range results {
		if r.Captured {
			captured++
			continue
		}
		escaped++
		closest = math.Min(closest, r.MinRadius)
	}
	return
}

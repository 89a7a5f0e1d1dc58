package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/geodesim/internal/analysis"
	"github.com/san-kum/geodesim/internal/automation"
	"github.com/san-kum/geodesim/internal/config"
	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/experiment"
	"github.com/san-kum/geodesim/internal/grrt"
	"github.com/san-kum/geodesim/internal/icond"
	"github.com/san-kum/geodesim/internal/integrators"
	"github.com/san-kum/geodesim/internal/spacetime"
	"github.com/san-kum/geodesim/internal/storage"
	"github.com/san-kum/geodesim/internal/tangent"
	"github.com/san-kum/geodesim/internal/viz"
)

// loadConfig resolves the preset or config file, then applies any flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		cfg.Name = args[0]
	}

	if configFile != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give either a preset or --config, not both")
		}
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("spin") {
		cfg.Spacetime.Spin = spin
	}
	if flags.Changed("charge") {
		cfg.Spacetime.Charge = charge
	}
	if flags.Changed("lambda") {
		l := lambda
		cfg.Integrate.L = &l
	}
	if flags.Changed("samples") {
		cfg.Integrate.Samples = samples
	}
	if flags.Changed("stepper") {
		cfg.Integrate.Stepper = stepper
	}
	if flags.Changed("precision") {
		cfg.Spacetime.Precision = precision
	}
	return cfg, cfg.Validate()
}

func runGeodesics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(grrt.WithWorkers(workers)); err != nil {
		return err
	}

	logger.Infof("integrating %s source (spin=%g charge=%g)", cfg.Source.Kind, cfg.Spacetime.Spin, cfg.Spacetime.Charge)
	start := time.Now()
	out, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID := "(not saved)"
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if runID, err = st.Save(exp.Metadata(out), out.Record); err != nil {
			return err
		}
	}

	rc := exp.Session().Radius()
	radii := make([]float64, len(out.Record.States))
	for k, b := range out.Record.States {
		radii[k] = rc.Of(b.Elems[0].X)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s %s\n", viz.MetricLabel.Render("run id:"), runID)
	fmt.Fprintf(&body, "%s %v\n", viz.MetricLabel.Render("elapsed:"), elapsed.Round(time.Millisecond))
	fmt.Fprintf(&body, "%s %d x %d elements\n", viz.MetricLabel.Render("samples:"), len(out.Record.Lambdas), out.Record.Final().Len())
	fmt.Fprintf(&body, "%s %s\n\n", viz.MetricLabel.Render("r(λ):"), viz.SparklineChart(radii, 48))
	body.WriteString(viz.MetricTable(out.Metrics))

	fmt.Println(viz.BoxWithTitle("geodesim run", body.String()))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tSPIN\tCHARGE\tPRECISION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%s\n", name, p.Source.Kind, p.Spacetime.Spin, p.Spacetime.Charge, p.Spacetime.Precision)
	}
	return w.Flush()
}

func showInfo(cmd *cobra.Command, args []string) error {
	s, err := grrt.New(spin, charge)
	if err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s %g\n", viz.MetricLabel.Render("spin:"), spin)
	fmt.Fprintf(&body, "%s %g\n", viz.MetricLabel.Render("charge:"), charge)
	if reh, ok := s.Horizon(); ok {
		fmt.Fprintf(&body, "%s %s\n", viz.MetricLabel.Render("outer horizon:"), viz.MetricValue.Render(fmt.Sprintf("%.6f", reh)))
		fmt.Fprintf(&body, "%s r >= %.6f", viz.MetricLabel.Render("stop when:"), reh+1e-2)
	} else {
		fmt.Fprintf(&body, "%s %s\n", viz.MetricLabel.Render("outer horizon:"), viz.Captured.Render("none (naked singularity)"))
		fmt.Fprintf(&body, "%s ring distance >= %g", viz.MetricLabel.Render("stop when:"), 1e-2)
	}
	if orbitRadius > 0 {
		rate, err := orbitInstability(s, orbitRadius)
		if err != nil {
			return err
		}
		fmt.Fprintf(&body, "\n%s %s", viz.MetricLabel.Render(fmt.Sprintf("orbit r=%g lyapunov:", orbitRadius)), viz.MetricValue.Render(fmt.Sprintf("%.4f", rate)))
	}

	fmt.Println(viz.BoxWithTitle("spacetime", body.String()))
	return nil
}

// orbitInstability estimates the divergence rate per unit affine parameter
// of rays started next to the spherical photon orbit at radius r.
func orbitInstability(s *grrt.Session, r float64) (float64, error) {
	p, err := icond.SphericalOrbit(spin, r)
	if err != nil {
		return 0, err
	}
	v, err := tangent.New(s.Metric()).Nullify(p.X, p.V)
	if err != nil {
		return 0, err
	}
	x0 := dynamo.Tangent{X: p.X, V: v}.State()
	sys := spacetime.Geodesic{Metric: s.Metric()}
	return analysis.LyapunovExponent(sys, integrators.NewRK4(), x0, 0.05, 30, 1e-7), nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), sc, st)
	for _, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Println(viz.BoxWithTitle(r.Name+"  "+viz.Subtle.Render(id), viz.MetricTable(r.Metrics)))
	}
	return err
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	steppers := args[1:]
	if len(steppers) == 0 {
		steppers = []string{"rk45", "rk4"}
	}

	fmt.Printf("%-8s  %-14s  %-12s  %-10s\n", "stepper", "drift", "min_radius", "time_ms")
	fmt.Println(strings.Repeat("-", 50))

	for _, name := range steppers {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", args[0])
		}
		cfg.Integrate.Stepper = name

		exp := experiment.New(cfg)
		if err := exp.Setup(grrt.WithWorkers(workers)); err != nil {
			fmt.Printf("%-8s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		out, err := exp.Run(cmd.Context())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-8s  error: %v\n", name, err)
			continue
		}

		fmt.Printf("%-8s  %14.3e  %12.6f  %10.2f\n", name, out.Metrics["constraint_drift"], out.Metrics["min_radius"], float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s", args[0])
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      base,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepN,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCAPTURED\tMIN_RADIUS\tDRIFT\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		minR := r.Metrics["min_radius"]
		if math.IsInf(minR, 1) {
			minR = math.NaN()
		}
		fmt.Fprintf(w, "%.4f\t%.3f\t%.6f\t%.3e\n", r.ParamValue, r.Metrics["captured"], minR, r.Metrics["constraint_drift"])
	}
	return w.Flush()
}

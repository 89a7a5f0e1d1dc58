package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/geodesim/internal/config"
	"github.com/san-kum/geodesim/internal/log"
)

var (
	dataDir string
	workers int
	verbose bool
	quiet   bool

	configFile string
	spin       float64
	charge     float64
	lambda     float64
	samples    int
	stepper    string
	precision  string
	noSave     bool

	element     int
	orbitRadius float64

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepN     int
)

var logger = log.New("geodesim")

func setupLogging(env config.Env) error {
	level, err := log.ParseLevel(env.LogLevel)
	if err != nil {
		return err
	}
	switch {
	case verbose:
		level = log.Debug
	case quiet:
		level = log.Warning
	}
	log.SetLevel(level)
	return nil
}

// main registers the commands and runs the root command, exiting with
// status 1 on error.
func main() {
	env, err := config.LoadEnv()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "geodesim",
		Short:         "geodesic integration around Kerr-Newman black holes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(env)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", env.Workers, "worker goroutines (0 for one per CPU)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "warnings and errors only")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate a preset or config file and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGeodesics,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().Float64Var(&spin, "spin", 0, "black hole spin a")
	runCmd.Flags().Float64Var(&charge, "charge", 0, "black hole charge q")
	runCmd.Flags().Float64VarP(&lambda, "lambda", "L", 0, "affine parameter to extend by")
	runCmd.Flags().IntVar(&samples, "samples", 0, "output samples (0 for L/h)")
	runCmd.Flags().StringVar(&stepper, "stepper", "rk45", "integrator (rk45, rk4)")
	runCmd.Flags().StringVar(&precision, "precision", "float64", "float64 or float32")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the radius of one element of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&element, "element", 0, "element index")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export one element of a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().IntVar(&element, "element", 0, "element index")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "report the horizon geometry of a spacetime",
		Args:  cobra.NoArgs,
		RunE:  showInfo,
	}
	infoCmd.Flags().Float64Var(&spin, "spin", 0.9, "black hole spin a")
	infoCmd.Flags().Float64Var(&charge, "charge", 0, "black hole charge q")
	infoCmd.Flags().Float64Var(&orbitRadius, "orbit", 0, "also estimate the instability of the spherical photon orbit at this radius")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [stepper...]",
		Short: "compare integrators on a preset",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSteppers,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep one parameter of a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "spin", "spin, charge, inclination, distance or radius")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.99, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 5, "number of values")

	rootCmd.AddCommand(runCmd, presetsCmd, listCmd, plotCmd, exportJSONCmd, infoCmd, scenarioCmd, compareCmd, sweepCmd)

	ctx := context.Background()
	shutdown, err := setupTracing(ctx, env.OTelEndpoint)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	err = rootCmd.ExecuteContext(ctx)
	if serr := shutdown(ctx); serr != nil {
		logger.Warningf("flush traces: %v", serr)
	}
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

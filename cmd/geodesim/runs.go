package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/geodesim/internal/grrt"
	"github.com/san-kum/geodesim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSOURCE\tSPIN\tCHARGE\tSHAPE\tSAMPLES\tCAPTURED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%v\t%d\t%.3f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Source,
			run.Spin,
			run.Charge,
			run.Shape,
			run.Samples,
			run.Metrics["captured"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	lambdas, states, err := st.LoadStates(runID, element)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot for element %d", element)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s (spin=%g charge=%g)\n", meta.Source, meta.Spin, meta.Charge)
	fmt.Printf("samples: %d, lambda %g to %g\n\n", len(states), lambdas[0], lambdas[len(lambdas)-1])

	rc := grrt.RadialCoordinate{Spin: meta.Spin}
	r := make([]float64, len(states))
	z := make([]float64, len(states))
	for i, p := range states {
		r[i] = rc.Of(p.X)
		z[i] = p.X[3]
	}

	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"Kerr-Schild radius r", r},
		{"height z", z},
	} {
		fmt.Println(asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		))
		fmt.Println()
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportJSON(os.Stdout, args[0], element)
}

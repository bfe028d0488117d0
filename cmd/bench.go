package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/f5xs-0000a/adam/internal/bench"
	"github.com/f5xs-0000a/adam/internal/objective"
	"github.com/spf13/cobra"
)

var (
	benchDim   int
	benchIters int
	benchPop   int
	benchSeed  int64
	benchBound float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare optimizers across the benchmark suite",
	Long: `Runs the gradient-free Adam optimizer and the mayfly algorithm on
every registered benchmark objective and prints the final costs side
by side. Both optimizers get the same evaluation budget.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchDim, "dim", 10, "Problem dimensionality")
	benchCmd.Flags().IntVar(&benchIters, "iters", 200, "Generations / iterations per optimizer")
	benchCmd.Flags().IntVar(&benchPop, "pop", 30, "Population size")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 42, "Random seed")
	benchCmd.Flags().Float64Var(&benchBound, "bound", 5.12, "Search box half-width")

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	lower := make([]float64, benchDim)
	upper := make([]float64, benchDim)
	for i := range lower {
		lower[i] = -benchBound
		upper[i] = benchBound
	}

	optimizers := []struct {
		name string
		opt  bench.Optimizer
	}{
		{"adam-zero", bench.NewAdamZero(benchIters, benchPop*2, benchPop, benchSeed)},
		{"mayfly", bench.NewMayfly(benchIters, benchPop, benchSeed)},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "OBJECTIVE\tOPTIMIZER\tFINAL COST\tELAPSED")

	for _, name := range objective.Names() {
		fn, err := objective.Lookup(name)
		if err != nil {
			return err
		}

		for _, o := range optimizers {
			start := time.Now()
			_, cost := o.opt.Run(fn, lower, upper, benchDim)
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%s\t%s\t%.6g\t%s\n", name, o.name, cost, elapsed.Round(time.Millisecond))
		}
	}

	return w.Flush()
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/f5xs-0000a/adam"
	"github.com/f5xs-0000a/adam/internal/objective"
	"github.com/f5xs-0000a/adam/internal/runner"
	"github.com/f5xs-0000a/adam/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	objectiveName   string
	dim             int
	generations     int
	startPop        int
	popSize         int
	seed            int64
	alpha           float64
	epsilon         float64
	beta1           float64
	beta2           float64
	patience        int
	threshold       float64
	dataDir         string
	checkpointEvery int
	jobID           string
	writeTrace      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Runs a seeded optimization of the chosen benchmark objective and
prints a summary. With --checkpoint-every the run writes periodic
checkpoints that "adam resume" can continue exactly.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&objectiveName, "objective", "sphere", "Objective function name")
	runCmd.Flags().IntVar(&dim, "dim", 10, "Problem dimensionality")
	runCmd.Flags().IntVar(&generations, "generations", 100, "Max generations")
	runCmd.Flags().IntVar(&startPop, "start-pop", 32, "Initial population size")
	runCmd.Flags().IntVar(&popSize, "pop", 16, "Sustain population size")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().Float64Var(&alpha, "alpha", 0.001, "Learning rate")
	runCmd.Flags().Float64Var(&epsilon, "epsilon", 1e-8, "Numerical stability constant")
	runCmd.Flags().Float64Var(&beta1, "beta1", 0.9, "First moment decay rate")
	runCmd.Flags().Float64Var(&beta2, "beta2", 0.999, "Second moment decay rate")
	runCmd.Flags().IntVar(&patience, "patience", 10, "Generations without improvement before stopping (0 = run to the horizon)")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.001, "Minimum relative improvement to count as progress")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for checkpoints and traces")
	runCmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", 0, "Save a checkpoint every N generations (0 = disabled)")
	runCmd.Flags().StringVar(&jobID, "job-id", "", "Job ID for checkpoints and traces (default: random)")
	runCmd.Flags().BoolVar(&writeTrace, "trace", false, "Write a per-generation trace file")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	fn, err := objective.Lookup(objectiveName)
	if err != nil {
		return err
	}

	if jobID == "" {
		jobID = uuid.New().String()
	}

	cfg := runner.Config{
		Objective:   objectiveName,
		Dim:         dim,
		Generations: generations,
		StartPop:    startPop,
		PopSize:     popSize,
		Seed:        seed,
		Params: adam.Params[float64]{
			Alpha:   alpha,
			Epsilon: epsilon,
			Beta1:   beta1,
			Beta2:   beta2,
		},
		Convergence: objective.ConvergenceConfig{
			Enabled:   patience > 0,
			Patience:  patience,
			Threshold: threshold,
		},
		CheckpointEvery: checkpointEvery,
		JobID:           jobID,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var hooks runner.Hooks
	if checkpointEvery > 0 {
		fsStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		hooks.Store = fsStore
	}
	if writeTrace {
		tw, err := store.NewTraceWriter(dataDir, jobID, false)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer tw.Close()
		hooks.Trace = tw
	}

	slog.Info("Starting run", "job_id", jobID, "objective", objectiveName, "dim", dim)

	start := time.Now()
	result, err := runner.Run(context.Background(), fn, cfg, hooks)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	evals := startPop + (result.Generations-1)*popSize
	eps := float64(evals) / elapsed.Seconds()

	slog.Info("Run complete",
		"elapsed", elapsed,
		"generations", result.Generations,
		"initial_score", result.InitialScore,
		"best_score", result.BestScore,
		"converged", result.Converged,
		"evals_per_second", fmt.Sprintf("%.0f", eps),
	)

	fmt.Printf("%s d=%d: score %.6g -> %.6g in %d generations (%.0f evals/sec)\n",
		objectiveName, dim, result.InitialScore, result.BestScore, result.Generations, eps)
	if result.Converged {
		fmt.Println("Stopped early: converged")
	}
	if checkpointEvery > 0 {
		fmt.Printf("Checkpoint saved under %s (job %s)\n", dataDir, jobID)
	}

	return nil
}

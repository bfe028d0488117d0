package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/f5xs-0000a/adam/internal/objective"
	"github.com/f5xs-0000a/adam/internal/runner"
	"github.com/f5xs-0000a/adam/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeDataDir     string
	resumeGenerations int
	resumeTrace       bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a checkpointed run",
	Long: `Continues a checkpointed run to its configured horizon. The resumed
trajectory is identical to what the uninterrupted run would have
produced. Pass --generations to extend the horizon beyond the one the
checkpoint was created with.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Directory for checkpoints and traces")
	resumeCmd.Flags().IntVar(&resumeGenerations, "generations", 0, "New generation horizon (0 = keep the checkpoint's)")
	resumeCmd.Flags().BoolVar(&resumeTrace, "trace", false, "Append to the per-generation trace file")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	id := args[0]

	fsStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	cp, err := fsStore.LoadCheckpoint(id)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cfg := runner.FromJobConfig(cp.Config, id)
	if resumeGenerations > 0 {
		if resumeGenerations <= cp.Generation {
			return fmt.Errorf("new horizon %d must exceed checkpoint generation %d",
				resumeGenerations, cp.Generation)
		}
		cfg.Generations = resumeGenerations
	}

	fn, err := objective.Lookup(cfg.Objective)
	if err != nil {
		return err
	}

	hooks := runner.Hooks{Store: fsStore}
	if resumeTrace {
		tw, err := store.NewTraceWriter(resumeDataDir, id, true)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer tw.Close()
		hooks.Trace = tw
	}

	slog.Info("Resuming run",
		"job_id", id,
		"objective", cfg.Objective,
		"from_generation", cp.Generation,
		"to_generation", cfg.Generations,
	)

	start := time.Now()
	result, err := runner.Resume(context.Background(), fn, cp, cfg, hooks)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("%s d=%d: resumed at generation %d, best score %.6g after %d generations (%s)\n",
		cp.Config.Objective, cp.Config.Dim, cp.Generation,
		result.BestScore, result.Generations, elapsed.Round(time.Millisecond))
	if result.Converged {
		fmt.Println("Stopped early: converged")
	}

	return nil
}

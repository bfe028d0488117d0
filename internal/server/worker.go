package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/f5xs-0000a/adam/internal/objective"
	"github.com/f5xs-0000a/adam/internal/runner"
	"github.com/f5xs-0000a/adam/internal/store"
)

// runJob executes an optimization job in the background. Progress is
// broadcast after every generation; periodic checkpoints are written by the
// runner when the job's checkpoint interval is set.
func runJob(ctx context.Context, jm *JobManager, checkpointStore *store.FSStore, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "objective", job.Config.Objective, "dim", job.Config.Dim)

	// Resolve the objective function
	fn, err := objective.Lookup(job.Config.Objective)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	cfg := runner.FromJobConfig(job.Config, jobID)

	// Open the per-generation trace
	trace, err := store.NewTraceWriter(checkpointStore.BaseDir(), jobID, false)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to open trace: %w", err))
		return err
	}
	defer trace.Close()

	start := time.Now()
	hooks := runner.Hooks{
		Trace: trace,
		Progress: func(p runner.Progress) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Generation = p.Generation
				j.BestScore = p.BestScore
			})

			eps := float64(0)
			if elapsed := time.Since(start).Seconds(); elapsed > 0 {
				eps = float64(p.Evaluations) / elapsed
			}
			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      StateRunning,
				Generation: p.Generation,
				BestScore:  p.BestScore,
				EPS:        eps,
				Timestamp:  time.Now(),
			})
		},
	}
	if job.Config.CheckpointInterval > 0 {
		hooks.Store = checkpointStore
	}

	result, err := runner.Run(ctx, fn, cfg, hooks)

	if errors.Is(err, context.Canceled) {
		markJobCancelled(jm, jobID)
		return err
	}
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	elapsed := time.Since(start)

	// Update job with results
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestVector = result.BestVector
		j.BestScore = result.BestScore
		j.InitialScore = result.InitialScore
		j.Generation = result.Generations
		j.Converged = result.Converged
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	evals := job.Config.StartPop + (result.Generations-1)*job.Config.PopSize
	eps := float64(evals) / elapsed.Seconds()

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"initial_score", result.InitialScore,
		"best_score", result.BestScore,
		"generations", result.Generations,
		"converged", result.Converged,
		"evals_per_second", eps,
	)

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Generation: result.Generations,
		BestScore:  result.BestScore,
		EPS:        eps,
		Timestamp:  time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// Package runner orchestrates full optimization runs: it wires an objective
// function to the adam Driver/State loop, tracks the best point seen,
// detects convergence, and handles per-generation tracing and periodic
// checkpointing.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/f5xs-0000a/adam"
	"github.com/f5xs-0000a/adam/internal/objective"
	"github.com/f5xs-0000a/adam/internal/store"
)

// Config holds everything a run needs. It mirrors store.JobConfig so a run
// can be checkpointed and resumed.
type Config struct {
	// Objective is the benchmark name, recorded in checkpoints so resume
	// can verify it matches.
	Objective string

	Dim         int
	Generations int
	StartPop    int // initial population size, used once at cold start
	PopSize     int // sustain population size, used by every resample
	Seed        int64

	Params      adam.Params[float64]
	Convergence objective.ConvergenceConfig

	// CheckpointEvery saves a checkpoint after every N completed
	// generations (0 = disabled). Requires Hooks.Store and a JobID.
	CheckpointEvery int
	JobID           string
}

// FromJobConfig rebuilds a runner Config from its persisted form.
func FromJobConfig(jc store.JobConfig, jobID string) Config {
	return Config{
		Objective:       jc.Objective,
		Dim:             jc.Dim,
		Generations:     jc.Generations,
		StartPop:        jc.StartPop,
		PopSize:         jc.PopSize,
		Seed:            jc.Seed,
		Params:          jc.Params(),
		Convergence:     objective.DefaultConvergenceConfig(),
		CheckpointEvery: jc.CheckpointInterval,
		JobID:           jobID,
	}
}

// JobConfig converts the runner Config into its persisted form.
func (c Config) JobConfig() store.JobConfig {
	return store.JobConfig{
		Objective:          c.Objective,
		Dim:                c.Dim,
		Generations:        c.Generations,
		StartPop:           c.StartPop,
		PopSize:            c.PopSize,
		Seed:               c.Seed,
		Alpha:              c.Params.Alpha,
		Epsilon:            c.Params.Epsilon,
		Beta1:              c.Params.Beta1,
		Beta2:              c.Params.Beta2,
		CheckpointInterval: c.CheckpointEvery,
	}
}

// Validate checks the run configuration.
func (c Config) Validate() error {
	if c.Dim < 1 {
		return fmt.Errorf("dim must be >= 1, got %d", c.Dim)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be >= 1, got %d", c.Generations)
	}
	if c.StartPop < 1 {
		return fmt.Errorf("start population must be >= 1, got %d", c.StartPop)
	}
	if c.PopSize < 1 {
		return fmt.Errorf("population size must be >= 1, got %d", c.PopSize)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint interval must be >= 0, got %d", c.CheckpointEvery)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// Progress is handed to the progress hook after every completed generation.
type Progress struct {
	Generation  int // completed generations so far
	BestScore   float64
	Evaluations int // cumulative objective evaluations
}

// Hooks carries optional run collaborators. Zero value disables them all.
type Hooks struct {
	// Progress is called synchronously after each generation.
	Progress func(Progress)

	// Store receives periodic checkpoints when Config.CheckpointEvery > 0,
	// plus one final checkpoint when the run ends.
	Store store.Store

	// Trace receives one entry per generation.
	Trace *store.TraceWriter
}

// Result summarizes a completed (or converged, or cancelled) run.
type Result struct {
	BestVector   []float64
	BestScore    float64
	InitialScore float64 // the bootstrap champion's score
	Generations  int     // completed generations
	Converged    bool
}

// Run executes a fresh optimization run from generation zero.
// It returns the partial Result alongside ctx.Err() if the context is
// cancelled between generations.
func Run(ctx context.Context, fn objective.Func, cfg Config, hooks Hooks) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	state := adam.NewState[float64](cfg.Dim)
	driver := adam.NewDriver(cfg.StartPop, cfg.PopSize, state, rng)

	slog.Info("Starting optimization run",
		"objective", cfg.Objective,
		"dim", cfg.Dim,
		"generations", cfg.Generations,
		"start_pop", cfg.StartPop,
		"pop_size", cfg.PopSize,
		"seed", cfg.Seed,
	)

	result := &Result{BestScore: math.Inf(-1)}
	return run(ctx, fn, cfg, hooks, state, driver, rng, 0, result)
}

// Resume continues a checkpointed run under cfg, exactly. cfg is verified
// against the checkpoint: everything that feeds the deterministic
// trajectory (objective, dimension, population sizes, seed, hyperparameters)
// must match; only the generation horizon and checkpoint interval may
// differ, which is how a finished run gets extended.
//
// The checkpoint carries the full optimizer state and population, and the
// seeded RNG stream is fast-forwarded by the number of normal draws the
// original run had consumed: StartPop*Dim at cold start plus
// (PopSize-1)*Dim per completed generation. From there the trajectory is
// bit-for-bit identical to an uninterrupted run.
func Resume(ctx context.Context, fn objective.Func, cp *store.Checkpoint, cfg Config, hooks Hooks) (*Result, error) {
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot resume from invalid checkpoint: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cp.IsCompatible(cfg.JobConfig()); err != nil {
		return nil, fmt.Errorf("cannot resume checkpoint %s: %w", cp.JobID, err)
	}
	if cp.Generation >= cfg.Generations {
		return nil, fmt.Errorf("checkpoint already at generation %d of %d; nothing to resume",
			cp.Generation, cfg.Generations)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	draws := cfg.StartPop*cfg.Dim + cp.Generation*(cfg.PopSize-1)*cfg.Dim
	for i := 0; i < draws; i++ {
		rng.NormFloat64()
	}

	driver := adam.RestoreDriver(cfg.PopSize, clonePopulation(cp.Population))

	slog.Info("Resuming optimization run",
		"job_id", cp.JobID,
		"objective", cfg.Objective,
		"from_generation", cp.Generation,
		"to_generation", cfg.Generations,
		"rng_draws_skipped", draws,
	)

	result := &Result{
		BestVector:   append([]float64{}, cp.BestVector...),
		BestScore:    cp.BestScore,
		InitialScore: cp.InitialScore,
		Generations:  cp.Generation,
	}
	if len(cp.BestVector) == 0 {
		result.BestScore = math.Inf(-1)
	}

	return run(ctx, fn, cfg, hooks, cp.State, driver, rng, cp.Generation, result)
}

// run is the shared generation loop. startGen is the number of generations
// already completed before entry.
func run(
	ctx context.Context,
	fn objective.Func,
	cfg Config,
	hooks Hooks,
	state *adam.State[float64],
	driver *adam.Driver[float64],
	rng *rand.Rand,
	startGen int,
	result *Result,
) (*Result, error) {
	tracker := objective.NewConvergenceTracker(cfg.Convergence)
	evaluations := startGen * cfg.PopSize
	if startGen > 0 {
		evaluations += cfg.StartPop - cfg.PopSize
	}

	for gen := startGen; gen < cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			slog.Info("Run cancelled", "job_id", cfg.JobID, "generation", gen)
			return result, ctx.Err()
		default:
		}

		scores := objective.EvaluateAll(fn, driver.Vectors())
		evaluations += driver.Len()

		// Track the best member of this generation before Step replaces
		// the population.
		genBest := 0
		for i, s := range scores {
			if s > scores[genBest] {
				genBest = i
			}
		}
		if scores[genBest] > result.BestScore {
			result.BestScore = scores[genBest]
			result.BestVector = append([]float64{}, driver.Vectors()[genBest]...)
		}
		if state.T() == 0 {
			result.InitialScore = scores[genBest]
		}

		if err := driver.Step(scores, state, cfg.Params, rng); err != nil {
			return result, fmt.Errorf("generation %d: %w", gen, err)
		}
		result.Generations = gen + 1

		if hooks.Trace != nil {
			entry := store.TraceEntry{
				Generation: gen + 1,
				BestScore:  result.BestScore,
				Timestamp:  time.Now(),
			}
			if err := hooks.Trace.Write(entry); err != nil {
				return result, fmt.Errorf("generation %d: trace write: %w", gen, err)
			}
		}

		if hooks.Progress != nil {
			hooks.Progress(Progress{
				Generation:  gen + 1,
				BestScore:   result.BestScore,
				Evaluations: evaluations,
			})
		}

		if hooks.Store != nil && cfg.CheckpointEvery > 0 && (gen+1)%cfg.CheckpointEvery == 0 {
			if err := saveCheckpoint(cfg, hooks, state, driver, result); err != nil {
				// Checkpointing failures are logged, not fatal; the run
				// itself is still sound.
				slog.Error("Failed to save checkpoint", "job_id", cfg.JobID, "generation", gen+1, "error", err)
			}
			if hooks.Trace != nil {
				if err := hooks.Trace.Flush(); err != nil {
					slog.Warn("Failed to flush trace", "job_id", cfg.JobID, "error", err)
				}
			}
		}

		if tracker.Update(result.BestScore) {
			result.Converged = true
			break
		}
	}

	// Final checkpoint so the run can be extended later.
	if hooks.Store != nil && cfg.CheckpointEvery > 0 {
		if err := saveCheckpoint(cfg, hooks, state, driver, result); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", cfg.JobID, "error", err)
		}
	}
	if hooks.Trace != nil {
		if err := hooks.Trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", cfg.JobID, "error", err)
		}
	}

	slog.Info("Run finished",
		"job_id", cfg.JobID,
		"generations", result.Generations,
		"initial_score", result.InitialScore,
		"best_score", result.BestScore,
		"converged", result.Converged,
	)
	return result, nil
}

func saveCheckpoint(cfg Config, hooks Hooks, state *adam.State[float64], driver *adam.Driver[float64], result *Result) error {
	if cfg.JobID == "" {
		return fmt.Errorf("checkpointing requires a job ID")
	}
	cp := store.NewCheckpoint(
		cfg.JobID,
		result.Generations,
		result.BestScore,
		result.InitialScore,
		append([]float64{}, result.BestVector...),
		state,
		clonePopulation(driver.Vectors()),
		cfg.JobConfig(),
	)
	return hooks.Store.SaveCheckpoint(cfg.JobID, cp)
}

func clonePopulation(pop [][]float64) [][]float64 {
	out := make([][]float64, len(pop))
	for i, v := range pop {
		out[i] = append([]float64{}, v...)
	}
	return out
}

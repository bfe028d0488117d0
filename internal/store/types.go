package store

import (
	"fmt"
	"time"

	"github.com/f5xs-0000a/adam"
)

// JobConfig holds configuration for an optimization job (checkpoint copy).
// This avoids import cycles with server package.
type JobConfig struct {
	Objective          string  `json:"objective"`
	Dim                int     `json:"dim"`
	Generations        int     `json:"generations"`
	StartPop           int     `json:"startPop"`
	PopSize            int     `json:"popSize"`
	Seed               int64   `json:"seed"`
	Alpha              float64 `json:"alpha"`
	Epsilon            float64 `json:"epsilon"`
	Beta1              float64 `json:"beta1"`
	Beta2              float64 `json:"beta2"`
	CheckpointInterval int     `json:"checkpointInterval,omitempty"` // Checkpoint every N generations (0 = disabled)
}

// Params converts the serialized hyperparameters into optimizer form.
func (c JobConfig) Params() adam.Params[float64] {
	return adam.Params[float64]{
		Alpha:   c.Alpha,
		Epsilon: c.Epsilon,
		Beta1:   c.Beta1,
		Beta2:   c.Beta2,
	}
}

// Checkpoint represents a saved optimization state that can be resumed later.
// All fields are serialized to JSON for persistence.
//
// Unlike best-point-only checkpointing schemes, this record carries the FULL
// optimizer state: the Adam moment accumulators, step counter and current
// anchor vector (State), plus the live population. Together with the job's
// seed these make resume exact: a resumed run reproduces bit-for-bit the
// trajectory of an uninterrupted run fed the same score sequence, because
// the RNG stream can be fast-forwarded to the position recorded by
// Generation (see the runner package).
type Checkpoint struct {
	// JobID is the unique identifier for this optimization job
	JobID string `json:"jobId"`

	// Generation is the number of completed generations when this
	// checkpoint was created
	Generation int `json:"generation"`

	// BestScore is the highest score observed so far (higher = better)
	BestScore float64 `json:"bestScore"`

	// BestVector is the parameter vector that achieved BestScore
	BestVector []float64 `json:"bestVector"`

	// InitialScore is the bootstrap champion's score, for improvement tracking
	InitialScore float64 `json:"initialScore"`

	// State is the full Adam optimizer state (moments, step counter, anchor)
	State *adam.State[float64] `json:"state"`

	// Population is the current candidate population, resampled from State
	Population [][]float64 `json:"population"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during resume.
	// We ensure that resumed jobs use compatible settings (same objective,
	// dimension, population sizes, seed, hyperparameters).
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the full
// state and population data. Used for listing checkpoints efficiently.
type CheckpointInfo struct {
	// JobID is the unique identifier for this checkpoint
	JobID string `json:"jobId"`

	// BestScore is the score achieved at the time of checkpointing
	BestScore float64 `json:"bestScore"`

	// Generation is the generation count at checkpoint time
	Generation int `json:"generation"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Objective is the benchmark objective name
	Objective string `json:"objective"`

	// Dim is the parameter-space dimension
	Dim int `json:"dim"`
}

// NewCheckpoint creates a checkpoint from job state.
// This is a helper for converting runtime job state to a persistable checkpoint.
func NewCheckpoint(jobID string, generation int, bestScore, initialScore float64, bestVector []float64, state *adam.State[float64], population [][]float64, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		Generation:   generation,
		BestScore:    bestScore,
		BestVector:   bestVector,
		InitialScore: initialScore,
		State:        state,
		Population:   population,
		Timestamp:    time.Now(),
		Config:       config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:      c.JobID,
		BestScore:  c.BestScore,
		Generation: c.Generation,
		Timestamp:  c.Timestamp,
		Objective:  c.Config.Objective,
		Dim:        c.Config.Dim,
	}
}

// Validate checks if the checkpoint has valid data.
// Returns an error if any required field is missing or invalid.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if c.State == nil {
		return &ValidationError{Field: "State", Reason: "cannot be nil"}
	}
	if c.Generation < 0 {
		return &ValidationError{Field: "Generation", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Objective == "" {
		return &ValidationError{Field: "Config.Objective", Reason: "cannot be empty"}
	}
	if c.Config.Dim <= 0 {
		return &ValidationError{Field: "Config.Dim", Reason: "must be positive"}
	}
	if c.Config.Generations <= 0 {
		return &ValidationError{Field: "Config.Generations", Reason: "must be positive"}
	}
	if c.Config.StartPop <= 0 {
		return &ValidationError{Field: "Config.StartPop", Reason: "must be positive"}
	}
	if c.Config.PopSize <= 0 {
		return &ValidationError{Field: "Config.PopSize", Reason: "must be positive"}
	}
	if c.State.Dim() != c.Config.Dim {
		return &ValidationError{
			Field:  "State",
			Reason: fmt.Sprintf("dimension mismatch: state has %d, config says %d", c.State.Dim(), c.Config.Dim),
		}
	}
	if len(c.BestVector) != 0 && len(c.BestVector) != c.Config.Dim {
		return &ValidationError{
			Field:  "BestVector",
			Reason: fmt.Sprintf("dimension mismatch: has %d, config says %d", len(c.BestVector), c.Config.Dim),
		}
	}
	if len(c.Population) == 0 {
		return &ValidationError{Field: "Population", Reason: "cannot be empty"}
	}
	for i, v := range c.Population {
		if len(v) != c.Config.Dim {
			return &ValidationError{
				Field:  "Population",
				Reason: fmt.Sprintf("member %d has dimension %d, config says %d", i, len(v), c.Config.Dim),
			}
		}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
// Returns an error if the configs are incompatible. Everything that feeds
// the deterministic trajectory must match: objective, dimension, population
// sizes, seed and hyperparameters.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Objective != config.Objective {
		return &CompatibilityError{
			Field:    "Objective",
			Expected: c.Config.Objective,
			Actual:   config.Objective,
		}
	}
	if c.Config.Dim != config.Dim {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprintf("%d", c.Config.Dim),
			Actual:   fmt.Sprintf("%d", config.Dim),
		}
	}
	if c.Config.StartPop != config.StartPop {
		return &CompatibilityError{
			Field:    "StartPop",
			Expected: fmt.Sprintf("%d", c.Config.StartPop),
			Actual:   fmt.Sprintf("%d", config.StartPop),
		}
	}
	if c.Config.PopSize != config.PopSize {
		return &CompatibilityError{
			Field:    "PopSize",
			Expected: fmt.Sprintf("%d", c.Config.PopSize),
			Actual:   fmt.Sprintf("%d", config.PopSize),
		}
	}
	if c.Config.Seed != config.Seed {
		return &CompatibilityError{
			Field:    "Seed",
			Expected: fmt.Sprintf("%d", c.Config.Seed),
			Actual:   fmt.Sprintf("%d", config.Seed),
		}
	}
	if c.Config.Params() != config.Params() {
		return &CompatibilityError{
			Field:    "Params",
			Expected: fmt.Sprintf("%+v", c.Config.Params()),
			Actual:   fmt.Sprintf("%+v", config.Params()),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

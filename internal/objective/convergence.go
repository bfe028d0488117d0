package objective

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines parameters for detecting optimization convergence
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of generations with no significant score
	// improvement before stopping
	Patience int

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (newScore - lastSignificant) / |lastSignificant|
	Threshold float64
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  10,
		Threshold: 0.001, // 0.1% improvement
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker tracks score history and detects when optimization has
// stalled. Scores follow the optimizer convention: higher = better.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	scoreHistory    []float64
	bestScore       float64 // Best score ever seen
	lastSignificant float64 // Last score that was a significant improvement
	staleCount      int     // Number of generations without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		scoreHistory:    []float64{},
		bestScore:       math.Inf(-1),
		lastSignificant: math.Inf(-1),
	}
}

// Update records a new best score and returns true if convergence is detected.
// History and the best score are tracked even when detection is disabled;
// only the stall logic is gated on Enabled.
func (c *ConvergenceTracker) Update(score float64) bool {
	c.scoreHistory = append(c.scoreHistory, score)

	if score > c.bestScore {
		c.bestScore = score
	}

	if !c.config.Enabled {
		return false // Never converge if disabled
	}

	// First score - initialize lastSignificant
	if len(c.scoreHistory) == 1 {
		c.lastSignificant = score
		return false
	}

	relativeImprovement := relativeGain(c.lastSignificant, score)

	if relativeImprovement >= c.config.Threshold {
		// Significant improvement - reset stale counter
		c.lastSignificant = score
		c.staleCount = 0
		slog.Debug("Score improvement detected",
			"score", score,
			"relative_improvement", relativeImprovement,
			"stale_count", c.staleCount,
		)
	} else {
		// No significant improvement
		c.staleCount++
		slog.Debug("No significant score improvement",
			"score", score,
			"last_significant", c.lastSignificant,
			"relative_improvement", relativeImprovement,
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
		)

		if c.staleCount >= c.config.Patience {
			slog.Info("Convergence detected - stopping early",
				"stale_count", c.staleCount,
				"patience", c.config.Patience,
				"best_score", c.bestScore,
			)
			return true
		}
	}

	return false
}

// relativeGain measures the improvement of cur over old, normalized by the
// magnitude of old. Falls back to the absolute gain when old is zero.
func relativeGain(old, cur float64) float64 {
	gain := cur - old
	if old == 0 {
		return gain
	}
	return gain / math.Abs(old)
}

// BestScore returns the best score seen so far
func (c *ConvergenceTracker) BestScore() float64 {
	return c.bestScore
}

// History returns the full score history
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.scoreHistory...) // Return copy
}

// StaleCount returns the current number of generations without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.scoreHistory = []float64{}
	c.bestScore = math.Inf(-1)
	c.lastSignificant = math.Inf(-1)
	c.staleCount = 0
}

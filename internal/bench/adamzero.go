package bench

import (
	"math"
	"math/rand"

	"github.com/f5xs-0000a/adam"
)

// AdamZeroAdapter drives the root-package Driver/State loop behind the
// Optimizer interface. The sampler itself is unbounded; candidates are
// clamped into [lower, upper] before evaluation so every optimizer in a
// comparison searches the same box.
type AdamZeroAdapter struct {
	generations int
	startPop    int
	popSize     int
	seed        int64
	params      adam.Params[float64]
}

// NewAdamZero creates an adapter around the zeroth-order Adam optimizer.
func NewAdamZero(generations, startPop, popSize int, seed int64) Optimizer {
	return &AdamZeroAdapter{
		generations: generations,
		startPop:    startPop,
		popSize:     popSize,
		seed:        seed,
		params:      adam.DefaultParams[float64](),
	}
}

// Run executes the optimization loop: evaluate the population, feed scores
// back, repeat. The best clamped candidate ever evaluated is returned.
func (a *AdamZeroAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	rng := rand.New(rand.NewSource(a.seed))
	state := adam.NewState[float64](dim)
	driver := adam.NewDriver(a.startPop, a.popSize, state, rng)

	bestCost := math.Inf(1)
	bestVector := make([]float64, dim)

	for gen := 0; gen < a.generations; gen++ {
		vectors := driver.Vectors()
		scores := make([]float64, len(vectors))
		for i, v := range vectors {
			candidate := clampInto(v, lower, upper)
			cost := eval(candidate)
			scores[i] = -cost // optimizer wants higher = better
			if cost < bestCost {
				bestCost = cost
				copy(bestVector, candidate)
			}
		}
		if err := driver.Step(scores, state, a.params, rng); err != nil {
			// Driver and state share one dimension by construction; a
			// mismatch here cannot happen.
			panic(err)
		}
	}

	return bestVector, bestCost
}

func clampInto(v, lower, upper []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Max(lower[i], math.Min(upper[i], x))
	}
	return out
}

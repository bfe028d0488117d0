// Package adam implements a zeroth-order (gradient-free) parameter
// optimizer. Callers evaluate a population of candidate vectors against an
// opaque objective and report scalar scores back; the optimizer estimates a
// surrogate gradient from the scored population, applies it through an
// Adam-style adaptive moment update, and resamples a new population around
// the updated point.
//
// The two core types are State, which owns the current parameter vector and
// the Adam moment accumulators, and Driver, which owns the population
// lifecycle: cold-start sampling, surrogate-gradient estimation, and
// resampling policy.
//
// Typical loop:
//
//	params := adam.DefaultParams[float64]()
//	state := adam.NewState[float64](dim)
//	rng := rand.New(rand.NewSource(seed))
//	driver := adam.NewDriver(64, 16, state, rng)
//
//	for gen := 0; gen < generations; gen++ {
//	    scores := make([]float64, driver.Len())
//	    for i, v := range driver.Vectors() {
//	        scores[i] = evaluate(v) // higher = better
//	    }
//	    if err := driver.Step(scores, state, params, rng); err != nil {
//	        return err
//	    }
//	}
//
// Everything is synchronous and single-threaded. The only external resource
// is the caller-supplied *rand.Rand; given the same RNG stream and the same
// score sequence, every population and state trajectory is exactly
// reproducible. A State/Driver pair must not be used from multiple
// goroutines without external synchronization.
package adam

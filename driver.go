package adam

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
)

// Driver owns the population of candidate vectors and drives the
// per-generation lifecycle: cold-start sampling, surrogate-gradient
// estimation, the State update, and resampling around the updated point.
//
// The population is ephemeral; every Step replaces it wholesale. Only the
// score-to-vector pairing of the current generation is meaningful.
type Driver[F Float] struct {
	startSize   int
	sustainSize int
	vectors     [][]F
}

// NewDriver generates the initial population: startingSize vectors of
// dimension st.Dim(), every entry drawn i.i.d. from a standard normal
// distribution. The cold start is deliberately not centered on the State's
// current vector; the first Step anchors the State to the best-scoring
// member instead. sustainSize is the population size used by every
// subsequent resampling.
func NewDriver[F Float](startingSize, sustainSize int, st *State[F], rng *rand.Rand) *Driver[F] {
	if startingSize < 1 {
		panic(&ContractError{Op: "NewDriver", Reason: fmt.Sprintf("starting size must be >= 1, got %d", startingSize)})
	}
	if sustainSize < 1 {
		panic(&ContractError{Op: "NewDriver", Reason: fmt.Sprintf("sustain size must be >= 1, got %d", sustainSize)})
	}

	dim := st.Dim()
	vectors := make([][]F, startingSize)
	for i := range vectors {
		v := make([]F, dim)
		for j := range v {
			v[j] = F(rng.NormFloat64())
		}
		vectors[i] = v
	}

	return &Driver[F]{
		startSize:   startingSize,
		sustainSize: sustainSize,
		vectors:     vectors,
	}
}

// RestoreDriver rebuilds a Driver around a persisted population, for
// resuming a checkpointed run. All vectors must share one dimension.
func RestoreDriver[F Float](sustainSize int, vectors [][]F) *Driver[F] {
	if sustainSize < 1 {
		panic(&ContractError{Op: "RestoreDriver", Reason: fmt.Sprintf("sustain size must be >= 1, got %d", sustainSize)})
	}
	if len(vectors) == 0 {
		panic(&ContractError{Op: "RestoreDriver", Reason: "population must not be empty"})
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			panic(&ContractError{Op: "RestoreDriver", Reason: fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), dim)})
		}
	}
	return &Driver[F]{
		startSize:   len(vectors),
		sustainSize: sustainSize,
		vectors:     vectors,
	}
}

// Vectors returns the live population for external evaluation. The caller
// produces one scalar score per vector (higher = better), in the same
// order, and feeds the score list to Step. Callers must not resize the
// outer slice.
func (d *Driver[F]) Vectors() [][]F {
	return d.vectors
}

// Len returns the current population size.
func (d *Driver[F]) Len() int {
	return len(d.vectors)
}

// Dim returns the member dimension.
func (d *Driver[F]) Dim() int {
	return len(d.vectors[0])
}

// Resample replaces the population with count members drawn around the
// State's current vector. Member 0 is the anchor point itself, copied
// without perturbation; members 1..count-1 are drawn independently per
// dimension from a normal distribution with mean x[i] and standard
// deviation sqrt(alpha * vHat[i]), so dimensions with larger adaptive
// steps get proportionally wider exploration.
func (d *Driver[F]) Resample(st *State[F], p Params[F], count int, rng *rand.Rand) {
	if count < 1 {
		panic(&ContractError{Op: "Resample", Reason: fmt.Sprintf("count must be >= 1, got %d", count)})
	}

	mean := st.Vector()
	stdev := st.VHat(p)
	for i, s := range stdev {
		stdev[i] = F(math.Sqrt(float64(s * p.Alpha)))
	}

	vectors := make([][]F, count)
	vectors[0] = append([]F{}, mean...)
	for i := 1; i < count; i++ {
		v := make([]F, len(mean))
		for j := range v {
			v[j] = mean[j] + stdev[j]*F(rng.NormFloat64())
		}
		vectors[i] = v
	}
	d.vectors = vectors

	slog.Debug("Population resampled", "count", count, "dim", len(mean))
}

// Step runs one generation: bootstrap anchoring (first generation only),
// surrogate-gradient estimation around the anchor, the Adam moment update,
// and resampling of the next population.
//
// scores must pair one-to-one with Vectors() in order; a length mismatch or
// an empty population is a caller-contract violation and panics with a
// *ContractError. On the bootstrap generation (st.T() == 0) the
// best-scoring member (first occurrence wins ties) is copied into the
// State's vector and swapped to index 0 of both the population and the
// caller's scores slice, so index 0 corresponds to the anchor from then on.
//
// A *DimensionError from the State update is surfaced to the caller.
func (d *Driver[F]) Step(scores []F, st *State[F], p Params[F], rng *rand.Rand) error {
	if len(d.vectors) == 0 {
		panic(&ContractError{Op: "Step", Reason: "population must not be empty"})
	}
	if len(scores) != len(d.vectors) {
		panic(&ContractError{Op: "Step", Reason: fmt.Sprintf("got %d scores for %d vectors", len(scores), len(d.vectors))})
	}

	// First generation: anchor the State to the champion.
	if st.T() == 0 {
		champ := 0
		for i, s := range scores {
			if s > scores[champ] {
				champ = i
			}
		}
		copy(st.Vector(), d.vectors[champ])
		d.vectors[0], d.vectors[champ] = d.vectors[champ], d.vectors[0]
		scores[0], scores[champ] = scores[champ], scores[0]
	}

	// Index 0 always holds the anchor point and its score.
	gradient := gradientAt(d.vectors[0], scores[0], d.vectors[1:], scores[1:])

	if err := st.Update(gradient, p); err != nil {
		return err
	}

	d.Resample(st, p, d.sustainSize, rng)
	return nil
}

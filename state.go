package adam

import (
	"encoding/json"
	"fmt"
	"math"
)

// State owns the current parameter vector and the two Adam moment
// accumulators. It is created once per run and persists across generations;
// the step counter T only ever grows (except through Reset).
//
// State has no locking. The caller owns it exclusively and mutates it only
// through Update, Reset and writes to the Vector view.
type State[F Float] struct {
	m []F // first-moment accumulator, length dim
	v []F // second-moment accumulator, length dim
	t int
	x []F // current parameter vector, length dim
}

// NewState returns a zero-initialized State of the given dimension.
// dim must be >= 1.
func NewState[F Float](dim int) *State[F] {
	if dim < 1 {
		panic(&ContractError{Op: "NewState", Reason: fmt.Sprintf("dimension must be >= 1, got %d", dim)})
	}
	return &State[F]{
		m: make([]F, dim),
		v: make([]F, dim),
		x: make([]F, dim),
	}
}

// Dim returns the dimension fixed at construction.
func (s *State[F]) Dim() int {
	return len(s.m)
}

// T returns the number of updates applied since construction or the last
// Reset.
func (s *State[F]) T() int {
	return s.t
}

// Vector returns the live backing slice of the current parameter point.
// Writes through it are visible to the optimizer; callers must not resize
// it. This is the single shared mutable view into the State.
func (s *State[F]) Vector() []F {
	return s.x
}

// M returns a copy of the first-moment accumulator.
func (s *State[F]) M() []F {
	return append([]F{}, s.m...)
}

// V returns a copy of the second-moment accumulator.
func (s *State[F]) V() []F {
	return append([]F{}, s.v...)
}

// MHat returns the bias-corrected first-moment estimate, m[i] / (1 - beta1^t).
// The correction divides by zero at t=0; callers must apply at least one
// Update first.
func (s *State[F]) MHat(p Params[F]) []F {
	return biasCorrected(s.m, p.Beta1, s.t)
}

// VHat returns the bias-corrected second-moment estimate, v[i] / (1 - beta2^t).
// Meaningless at t=0, same as MHat.
func (s *State[F]) VHat(p Params[F]) []F {
	return biasCorrected(s.v, p.Beta2, s.t)
}

// Reset zeroes the moment accumulators and the step counter but leaves the
// current vector untouched. Use it to discard adaptive-step history while
// keeping the learned point, e.g. to restart exploration with fresh step
// sizes.
func (s *State[F]) Reset() {
	for i := range s.m {
		s.m[i] = 0
		s.v[i] = 0
	}
	s.t = 0
}

// Update applies one Adam transition for the given gradient, mutating m, v,
// t and the current vector in place:
//
//	t      = t + 1
//	m[i]   = beta1*m[i] + (1-beta1)*g[i]
//	v[i]   = beta2*v[i] + (1-beta2)*g[i]^2
//	x[i]  -= alpha * mHat[i] / (sqrt(vHat[i]) + epsilon)
//
// It returns a *DimensionError if the gradient length does not match the
// State's dimension; there is no other failure mode.
func (s *State[F]) Update(gradient []F, p Params[F]) error {
	if len(gradient) != len(s.m) {
		return &DimensionError{Want: len(s.m), Got: len(gradient)}
	}

	s.t++

	for i, g := range gradient {
		s.m[i] = p.Beta1*s.m[i] + (1-p.Beta1)*g
		s.v[i] = p.Beta2*s.v[i] + (1-p.Beta2)*g*g
	}

	mHat := s.MHat(p)
	vHat := s.VHat(p)
	for i := range s.x {
		s.x[i] -= p.Alpha * mHat[i] / (F(math.Sqrt(float64(vHat[i]))) + p.Epsilon)
	}

	return nil
}

func biasCorrected[F Float](acc []F, beta F, t int) []F {
	correction := F(1 - math.Pow(float64(beta), float64(t)))
	out := make([]F, len(acc))
	for i, a := range acc {
		out[i] = a / correction
	}
	return out
}

// stateJSON is the persisted shape of a State. Field names follow the
// durable-record layout: m, v, t and the current vector.
type stateJSON[F Float] struct {
	M []F `json:"m"`
	V []F `json:"v"`
	T int `json:"t"`
	X []F `json:"vector"`
}

// MarshalJSON serializes the full durable record: m, v, t and the current
// vector. Restoring from this record reproduces the same subsequent
// trajectory bit-for-bit given the same parameters, RNG stream and score
// sequence.
func (s *State[F]) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON[F]{M: s.m, V: s.v, T: s.t, X: s.x})
}

// UnmarshalJSON restores a State from its durable record, validating the
// equal-length invariant across m, v and the vector.
func (s *State[F]) UnmarshalJSON(data []byte) error {
	var raw stateJSON[F]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.M) == 0 {
		return fmt.Errorf("invalid state record: empty accumulators")
	}
	if len(raw.V) != len(raw.M) || len(raw.X) != len(raw.M) {
		return fmt.Errorf("invalid state record: m/v/vector lengths differ (%d/%d/%d)",
			len(raw.M), len(raw.V), len(raw.X))
	}
	if raw.T < 0 {
		return fmt.Errorf("invalid state record: negative step count %d", raw.T)
	}
	s.m = raw.M
	s.v = raw.V
	s.t = raw.T
	s.x = raw.X
	return nil
}

package adam

import "fmt"

// Float constrains the numeric precision of an optimization run. It is
// chosen once at construction time; all State, Driver and Params values in
// one run must share the same instantiation.
type Float interface {
	~float32 | ~float64
}

// Params holds the Adam hyperparameters. Values are immutable for the
// lifetime of an optimization run.
type Params[F Float] struct {
	// Alpha is the step size applied to each bias-corrected update.
	Alpha F
	// Epsilon is the numerical-stability constant added to the
	// denominator of the update step.
	Epsilon F
	// Beta1 is the exponential decay rate of the first-moment estimate.
	Beta1 F
	// Beta2 is the exponential decay rate of the second-moment estimate.
	Beta2 F
}

// DefaultParams returns the standard Adam defaults:
// alpha=0.001, epsilon=1e-8, beta1=0.9, beta2=0.999.
func DefaultParams[F Float]() Params[F] {
	return Params[F]{
		Alpha:   0.001,
		Epsilon: 1e-8,
		Beta1:   0.9,
		Beta2:   0.999,
	}
}

// Validate checks the hyperparameter invariants: alpha > 0, epsilon > 0,
// 0 <= beta1 < 1 and 0 <= beta2 < 1. Construction never validates
// implicitly; app layers call this once before starting a run.
func (p Params[F]) Validate() error {
	if !(p.Alpha > 0) {
		return fmt.Errorf("alpha must be positive, got %v", p.Alpha)
	}
	if !(p.Epsilon > 0) {
		return fmt.Errorf("epsilon must be positive, got %v", p.Epsilon)
	}
	if p.Beta1 < 0 || p.Beta1 >= 1 {
		return fmt.Errorf("beta1 must be in [0, 1), got %v", p.Beta1)
	}
	if p.Beta2 < 0 || p.Beta2 >= 1 {
		return fmt.Errorf("beta2 must be in [0, 1), got %v", p.Beta2)
	}
	return nil
}

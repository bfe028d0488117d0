package adam

import "fmt"

// DimensionError reports a vector whose length does not match the State's
// dimension. It is the only recoverable failure in the core; use
// errors.Is(err, &DimensionError{}) to check for it.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}

// ContractError reports a caller-contract violation: mismatched score and
// population lengths, an empty population, or non-positive sizes. These are
// programmer errors, not runtime conditions, so they are passed to panic
// rather than returned.
type ContractError struct {
	Op     string
	Reason string
}

func (e *ContractError) Error() string {
	return "contract violation in " + e.Op + ": " + e.Reason
}

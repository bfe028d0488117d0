// Package objective provides the caller-supplied evaluator side of the
// optimization loop: a suite of standard benchmark functions, a registry
// for resolving them by name, and convergence detection over score
// histories.
package objective

import (
	"fmt"
	"math"
	"sort"
)

// Func is a cost function over a parameter vector, lower = better. The
// optimizer works with scores (higher = better); use Score or EvaluateAll
// to convert.
type Func func(x []float64) float64

// Score evaluates fn at x and negates it, converting the cost convention
// into the optimizer's higher-is-better score convention.
func Score(fn Func, x []float64) float64 {
	return -fn(x)
}

// EvaluateAll scores a population in order, one score per vector.
func EvaluateAll(fn Func, vectors [][]float64) []float64 {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = Score(fn, v)
	}
	return scores
}

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rosenbrock is the classic banana-valley function, minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

// Rastrigin is highly multimodal with a regular grid of local minima,
// global minimum 0 at the origin.
func Rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}

// Ackley has a nearly flat outer region and a deep hole at the origin,
// global minimum 0.
func Ackley(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sumSq, sumCos float64
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	n := float64(len(x))
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
}

var registry = map[string]Func{
	"sphere":     Sphere,
	"rosenbrock": Rosenbrock,
	"rastrigin":  Rastrigin,
	"ackley":     Ackley,
}

// Lookup resolves a benchmark function by name.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective %q (known: %v)", name, Names())
	}
	return fn, nil
}

// Names returns the registered objective names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package optimize provides bounded minimization of scalar functions.
package optimize

import "math"

// invPhi is 1/φ, the golden-section shrink factor.
var invPhi = (math.Sqrt(5) - 1) / 2

// Result is the outcome of a bounded minimization.
type Result struct {
	X          float64
	F          float64
	Iterations int
}

// Minimizer finds a minimum of f on [lo, hi].
type Minimizer interface {
	Minimize(f func(float64) float64, lo, hi float64) Result
}

// GoldenSection is a derivative-free minimizer for unimodal functions. It only
// evaluates f strictly inside the interval, so f may be singular at an endpoint.
type GoldenSection struct {
	// Tolerance is the bracket width at which the search stops
	Tolerance     float64
	MaxIterations int
}

// NewGoldenSection returns a minimizer with the usual xatol of 1e-5.
func NewGoldenSection() *GoldenSection {
	return &GoldenSection{Tolerance: 1e-5, MaxIterations: 500}
}

func (g *GoldenSection) Minimize(f func(float64) float64, lo, hi float64) Result {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return Result{X: lo, F: f(lo)}
	}

	tol := g.Tolerance
	if tol <= 0 {
		tol = 1e-5
	}
	maxIter := g.MaxIterations
	if maxIter <= 0 {
		maxIter = 500
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)

	i := 0
	for ; i < maxIter && b-a > tol; i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}

	if fc < fd {
		return Result{X: c, F: fc, Iterations: i}
	}
	return Result{X: d, F: fd, Iterations: i}
}

// Package baseline holds non-learning controllers for the offload environment.
package baseline

import "github.com/casperlundberg/offload-autoscale-env/pkg/env"

// FixedAction returns the normalized action that reproduces a literal compute
// power budget in the environment's current state. Budgets below the range map
// to 0, above it to 1.
func FixedAction(e *env.Environment, budget float64) float64 {
	low, high := e.Mapper().Bounds(e.State())
	switch {
	case high < low:
		return 0
	case budget < low:
		return 0
	case budget > high:
		return 1
	case high == low:
		return 0
	}
	return (budget - low) / (high - low)
}

// Fixed always asks for the same compute power budget.
type Fixed struct {
	Budget float64
}

func (f Fixed) Name() string { return NameFixed }

func (f Fixed) Act(e *env.Environment) float64 {
	return FixedAction(e, f.Budget)
}

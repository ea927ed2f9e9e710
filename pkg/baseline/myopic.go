package baseline

import (
	"math"

	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
	"github.com/casperlundberg/offload-autoscale-env/pkg/optimize"
)

// Myopic minimizes the current slot's weighted cost and ignores the future.
// For each server count it finds the best local workload with a bounded scalar
// search, then replays the winning compute demand through FixedAction.
type Myopic struct {
	minimizer optimize.Minimizer
}

// NewMyopic creates a myopic controller. A nil minimizer selects golden-section.
func NewMyopic(m optimize.Minimizer) *Myopic {
	if m == nil {
		m = optimize.NewGoldenSection()
	}
	return &Myopic{minimizer: m}
}

func (p *Myopic) Name() string { return NameMyopic }

func (p *Myopic) Act(e *env.Environment) float64 {
	s := e.State()
	params := e.Params()
	if !e.Mapper().Feasible(s) {
		return 0
	}

	bestF := math.Inf(1)
	bestServers, bestLocal := 0, 0.0
	for m := 1; m < params.MaxServers; m++ {
		upper := math.Min(s.Workload, float64(m)*params.ServiceRate)
		res := p.minimizer.Minimize(objective(params, s, m), 0, upper)
		if res.F < bestF {
			bestF, bestServers, bestLocal = res.F, m, res.X
		}
	}
	if bestServers == 0 {
		return 0
	}
	return FixedAction(e, params.ComputeDemand(bestServers, bestLocal))
}

// objective blends delay with a depreciation-style proxy of compute power.
func objective(params env.Parameters, s env.State, servers int) func(float64) float64 {
	return func(local float64) float64 {
		delay := env.LocalDelay(servers, local, params.ServiceRate) + env.CloudDelay(local, s.ChannelDelay, s.Workload)
		power := params.DepreciationCoef * params.ComputeDemand(servers, local)
		return (1-params.Priority)*delay + params.Priority*power
	}
}

// MyopicAction is the one-step-greedy action for the environment's current state.
func MyopicAction(e *env.Environment) float64 {
	return NewMyopic(nil).Act(e)
}

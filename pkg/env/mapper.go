package env

import (
	"fmt"
	"math"
)

// Allocation is a concrete slot decision: how many edge servers to activate and
// how much workload to process locally. The remainder goes to the cloud.
type Allocation struct {
	Servers int     `json:"servers"`
	Local   float64 `json:"local"`
}

// Idle reports whether nothing is activated.
func (a Allocation) Idle() bool {
	return a.Servers == 0 && a.Local == 0
}

// ActionMapper turns a normalized action in [0,1] into a feasible Allocation by
// rescaling it into a compute power budget and searching over server counts.
type ActionMapper struct {
	params Parameters
}

// NewActionMapper creates a mapper for p.
func NewActionMapper(p Parameters) *ActionMapper {
	return &ActionMapper{params: p}
}

// Feasible reports whether the battery can carry the base station plus at least
// one server in state s.
func (am *ActionMapper) Feasible(s State) bool {
	return s.Battery > am.params.OperationalDemand(s.Workload)+am.params.ServerPower
}

// Bounds returns the compute power range an action in [0,1] is rescaled onto.
// The upper bound is whatever the battery has left after operational demand,
// capped by running every server at full local workload.
func (am *ActionMapper) Bounds(s State) (low, high float64) {
	dOp := am.params.OperationalDemand(s.Workload)
	low = am.params.ServerPower
	high = math.Min(s.Battery-dOp, am.params.ComputeDemand(am.params.MaxServers, s.Workload))
	return low, high
}

// Budget rescales action into the compute power range of s.
func (am *ActionMapper) Budget(s State, action float64) float64 {
	low, high := am.Bounds(s)
	return low + clampUnit(action)*(high-low)
}

// Map resolves action into an Allocation for state s. When the battery cannot
// support a single server the zero Allocation is returned and every unit of
// workload is implicitly offloaded.
func (am *ActionMapper) Map(s State, action float64) (Allocation, error) {
	if !am.Feasible(s) {
		return Allocation{}, nil
	}
	return am.Search(s, am.Budget(s, action))
}

// Search finds the allocation whose compute demand equals budget and whose delay
// cost is lowest. Ties keep the smaller server count.
func (am *ActionMapper) Search(s State, budget float64) (Allocation, error) {
	best := Allocation{}
	bestCost := math.Inf(1)
	found := false

	for m := 1; m <= am.params.MaxServers; m++ {
		mu := snapToRange(am.Candidate(m, budget), s.Workload)
		if !am.Valid(s, m, mu) {
			continue
		}
		a := Allocation{Servers: m, Local: mu}
		if c := am.Delay(s, a); c < bestCost {
			best, bestCost, found = a, c, true
		}
	}

	if !found {
		return Allocation{}, fmt.Errorf("%w: no server count in [1,%d] meets budget %.3f at workload %.3f",
			ErrInfeasibleAction, am.params.MaxServers, budget, s.Workload)
	}
	return best, nil
}

// Candidate solves ComputeDemand(m, μ) = budget for μ.
func (am *ActionMapper) Candidate(servers int, budget float64) float64 {
	p := am.params
	return (budget - p.ServerPower*float64(servers)) * p.WorkloadLow / p.ServerPower
}

// Valid checks 0 <= μ <= λ and that m servers keep the local queue stable.
func (am *ActionMapper) Valid(s State, servers int, local float64) bool {
	if local < 0 || local > s.Workload {
		return false
	}
	return float64(servers)*am.params.ServiceRate > local
}

// Delay scores an allocation: local queueing delay plus cloud propagation delay.
func (am *ActionMapper) Delay(s State, a Allocation) float64 {
	return LocalDelay(a.Servers, a.Local, am.params.ServiceRate) + CloudDelay(a.Local, s.ChannelDelay, s.Workload)
}

// LocalDelay is the mean queueing delay of m servers of rate κ serving μ.
// An unstable queue (μ >= mκ) has infinite delay.
func LocalDelay(servers int, local, rate float64) float64 {
	if servers == 0 && local == 0 {
		return 0
	}
	capacity := float64(servers) * rate
	if local >= capacity {
		return math.Inf(1)
	}
	return local / (capacity - local)
}

// CloudDelay is the propagation cost of offloading λ-μ at channel delay h.
func CloudDelay(local, channelDelay, workload float64) float64 {
	return (workload - local) * channelDelay
}

// snapToRange pulls μ onto 0 or λ when it misses them by rounding only. The
// top of the budget range solves back to λ up to a few ulps.
func snapToRange(local, workload float64) float64 {
	eps := 1e-9 * math.Max(1, workload)
	switch {
	case math.Abs(local) <= eps:
		return 0
	case math.Abs(local-workload) <= eps:
		return workload
	default:
		return local
	}
}

func clampUnit(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

package env

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const hoursPerDay = 24

// RegimeAt maps a time of day in hours to its renewable regime.
// Intervals are half-open: [9,15) is peak, [0,6) and [18,24) are dark.
func RegimeAt(clock float64) Regime {
	switch {
	case clock >= 9 && clock < 15:
		return RegimePeak
	case clock < 6 || clock >= 18:
		return RegimeNone
	default:
		return RegimeModerate
	}
}

// AdvanceClock moves the time of day forward by dt hours, wrapping at midnight.
func AdvanceClock(clock, dt float64) float64 {
	return math.Mod(clock+dt, hoursPerDay)
}

// NextBattery applies one slot of battery dynamics.
//
// When operational demand exceeds the stored charge the battery is bypassed and
// only recharges by g. Otherwise it recharges by the surplus g-d or discharges by
// the deficit d-g. The result stays within [0, bMax].
func NextBattery(b, dOp, d, g, bMax float64) float64 {
	var next float64
	switch {
	case dOp > b:
		next = b + g
	case g >= d:
		next = b + g - d
	default:
		next = b - (d - g)
	}
	return math.Max(0, math.Min(bMax, next))
}

// Harvester draws the renewable energy collected during a slot.
type Harvester interface {
	Harvest(r Regime) float64
}

// HarvesterFunc adapts a function to the Harvester interface.
type HarvesterFunc func(r Regime) float64

func (f HarvesterFunc) Harvest(r Regime) float64 { return f(r) }

// StochasticHarvester samples harvest per regime: shifted exponential at night,
// normals during the day. Normal draws are not clamped at zero.
type StochasticHarvester struct {
	night    distuv.Exponential
	moderate distuv.Normal
	peak     distuv.Normal
}

// NewStochasticHarvester builds a harvester drawing from src.
func NewStochasticHarvester(src rand.Source) *StochasticHarvester {
	return &StochasticHarvester{
		night:    distuv.Exponential{Rate: 1.0 / 60, Src: src},
		moderate: distuv.Normal{Mu: 520, Sigma: 130, Src: src},
		peak:     distuv.Normal{Mu: 800, Sigma: 95, Src: src},
	}
}

func (h *StochasticHarvester) Harvest(r Regime) float64 {
	switch r {
	case RegimeNone:
		return h.night.Rand() + 100
	case RegimeModerate:
		return h.moderate.Rand()
	default:
		return h.peak.Rand()
	}
}

// TransitionModel produces the exogenous part of the next state.
// Workload and channel delay are independent uniform draws each slot.
type TransitionModel struct {
	workload  distuv.Uniform
	delay     distuv.Uniform
	harvester Harvester
}

// NewTransitionModel wires the samplers for p to src. A nil harvester selects
// the stochastic one on the same source.
func NewTransitionModel(p Parameters, src rand.Source, harvester Harvester) *TransitionModel {
	if harvester == nil {
		harvester = NewStochasticHarvester(src)
	}
	return &TransitionModel{
		workload:  distuv.Uniform{Min: p.WorkloadLow, Max: p.WorkloadHigh, Src: src},
		delay:     distuv.Uniform{Min: p.ChannelDelayLow, Max: p.ChannelDelayHigh, Src: src},
		harvester: harvester,
	}
}

func (t *TransitionModel) NextWorkload() float64 { return t.workload.Rand() }

func (t *TransitionModel) NextChannelDelay() float64 { return t.delay.Rand() }

func (t *TransitionModel) Harvest(r Regime) float64 { return t.harvester.Harvest(r) }

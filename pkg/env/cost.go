package env

import "math"

// DefaultCostFloor is the smallest total cost a slot may report.
const DefaultCostFloor = 1e-6

// CostComponents holds the three cost terms of a slot.
type CostComponents struct {
	Delay   float64 `json:"delay"`
	Backup  float64 `json:"backup"`
	Battery float64 `json:"battery"`
}

// Sum adds the three terms.
func (c CostComponents) Sum() float64 {
	return c.Delay + c.Backup + c.Battery
}

// Energy is the backup plus battery share of the cost.
func (c CostComponents) Energy() float64 {
	return c.Backup + c.Battery
}

// CostBreakdown is the scored outcome of one slot.
type CostBreakdown struct {
	Unweighted CostComponents `json:"unweighted"`
	Weighted   CostComponents `json:"weighted"`
	Total      float64        `json:"total"`
	// Clamped is set when Total was raised to the cost floor
	Clamped bool `json:"clamped"`
}

// Reward is the reciprocal of the total cost.
func (b CostBreakdown) Reward() float64 {
	return 1 / b.Total
}

// SlotInputs are the per-slot quantities the cost model scores.
type SlotInputs struct {
	State             State
	Allocation        Allocation
	OperationalDemand float64
	Harvest           float64
	Demand            float64
}

// CostModel combines delay, backup power and battery depreciation into a
// priority-weighted total.
type CostModel struct {
	params Parameters
	mapper *ActionMapper
	floor  float64
}

// NewCostModel creates a cost model. A non-positive floor selects DefaultCostFloor.
func NewCostModel(p Parameters, mapper *ActionMapper, floor float64) *CostModel {
	if floor <= 0 {
		floor = DefaultCostFloor
	}
	return &CostModel{params: p, mapper: mapper, floor: floor}
}

// Evaluate scores one slot. Backup power is paid when operational demand exceeds
// the battery, otherwise the battery depreciates with the unmet part of demand.
func (cm *CostModel) Evaluate(in SlotInputs) CostBreakdown {
	p := cm.params

	raw := CostComponents{Delay: cm.mapper.Delay(in.State, in.Allocation)}
	if in.OperationalDemand > in.State.Battery {
		raw.Backup = p.BackupCostCoef * in.OperationalDemand
	} else {
		raw.Battery = p.DepreciationCoef * math.Max(in.Demand-in.Harvest, 0)
	}

	weighted := CostComponents{
		Delay:   raw.Delay * (1 - p.Priority),
		Backup:  raw.Backup * p.Priority,
		Battery: raw.Battery * p.Priority,
	}

	out := CostBreakdown{Unweighted: raw, Weighted: weighted, Total: weighted.Sum()}
	// Also catches NaN
	if !(out.Total >= cm.floor) {
		out.Total = cm.floor
		out.Clamped = true
	}
	return out
}

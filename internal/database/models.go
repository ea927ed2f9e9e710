package database

import (
	"time"
)

// Run status values
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run represents one simulation of a policy over a number of slots
type Run struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Policy      string     `json:"policy" gorm:"index"`
	Seed        int64      `json:"seed"`
	Slots       int        `json:"slots"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Status      string     `json:"status"`     // running, completed, failed
	Parameters  string     `json:"parameters"` // JSON encoded env.Parameters
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SlotRecord is the outcome of a single environment step
type SlotRecord struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	RunID    string  `json:"run_id" gorm:"index"`
	Sequence int     `json:"sequence" gorm:"index"` // slot index within the run
	Episode  int     `json:"episode"`
	TimeStep int     `json:"time_step"`
	Clock    float64 `json:"clock"`

	// Observed state before the slot
	Workload     float64 `json:"workload"`
	Battery      float64 `json:"battery"`
	ChannelDelay float64 `json:"channel_delay"`
	Regime       int     `json:"regime"`

	// Decision
	Action        float64 `json:"action"`
	Servers       int     `json:"servers"`
	LocalWorkload float64 `json:"local_workload"`

	// Power
	Harvest           float64 `json:"harvest"`
	OperationalDemand float64 `json:"operational_demand"`
	ComputeDemand     float64 `json:"compute_demand"`

	// Cost (unweighted components, weighted total)
	DelayCost   float64 `json:"delay_cost"`
	BackupCost  float64 `json:"backup_cost"`
	BatteryCost float64 `json:"battery_cost"`
	TotalCost   float64 `json:"total_cost"`
	Reward      float64 `json:"reward"`
	Clamped     bool    `json:"clamped"`
	Done        bool    `json:"done"`

	CreatedAt time.Time `json:"created_at"`
}

// Event represents notable run events (episode boundaries, infeasible slots, errors)
type Event struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RunID     string    `json:"run_id" gorm:"index"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Sequence  int       `json:"sequence"`

	EventType string `json:"event_type"` // episode_done, infeasible_slot, cost_degenerate, cost_floored, run_failed
	Severity  string `json:"severity"`   // info, warning, error

	Message string `json:"message"`
	Details string `json:"details"` // JSON for additional data

	CreatedAt time.Time `json:"created_at"`
}

// RunSummary aggregates the slot records of a run
type RunSummary struct {
	Run             *Run    `json:"run"`
	SlotCount       int64   `json:"slot_count"`
	Episodes        int64   `json:"episodes"`
	AvgTotalCost    float64 `json:"avg_total_cost"`
	AvgDelayCost    float64 `json:"avg_delay_cost"`
	AvgBackupCost   float64 `json:"avg_backup_cost"`
	AvgBatteryCost  float64 `json:"avg_battery_cost"`
	AvgServers      float64 `json:"avg_servers"`
	AvgBattery      float64 `json:"avg_battery"`
	MinBattery      float64 `json:"min_battery"`
	TotalReward     float64 `json:"total_reward"`
	ClampedSlots    int64   `json:"clamped_slots"`
	InfeasibleSlots int64   `json:"infeasible_slots"`
	DegenerateSlots int64   `json:"degenerate_slots"`
}

// Event types
const (
	EventEpisodeDone    = "episode_done"
	EventInfeasibleSlot = "infeasible_slot"
	EventDegenerateCost = "cost_degenerate"
	EventCostFloored    = "cost_floored"
	EventRunFailed      = "run_failed"
)

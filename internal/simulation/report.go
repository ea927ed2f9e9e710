package simulation

import "github.com/casperlundberg/offload-autoscale-env/pkg/env"

// Averages are running means of the weighted cost components.
type Averages struct {
	Total   float64 `json:"total"`
	Delay   float64 `json:"delay"`
	Backup  float64 `json:"backup"`
	Battery float64 `json:"battery"`
	Energy  float64 `json:"energy"`
}

// Report is the per-slot running average series of a run, one point per
// successful slot.
type Report struct {
	Policy          string    `json:"policy"`
	Slots           int       `json:"slots"`
	Episodes        int       `json:"episodes"`
	InfeasibleSlots int       `json:"infeasible_slots"`
	DegenerateSlots int       `json:"degenerate_slots"`
	ClampedSlots    int       `json:"clamped_slots"`
	AvgTotal        []float64 `json:"avg_total"`
	AvgDelay        []float64 `json:"avg_delay"`
	AvgBackup       []float64 `json:"avg_backup"`
	AvgBattery      []float64 `json:"avg_battery"`
	AvgEnergy       []float64 `json:"avg_energy"`

	sum env.CostComponents
	n   int
}

func newReport(policy string, slots int) *Report {
	return &Report{
		Policy:     policy,
		Slots:      slots,
		AvgTotal:   make([]float64, 0, slots),
		AvgDelay:   make([]float64, 0, slots),
		AvgBackup:  make([]float64, 0, slots),
		AvgBattery: make([]float64, 0, slots),
		AvgEnergy:  make([]float64, 0, slots),
	}
}

func (r *Report) add(res env.StepResult) {
	w := res.Slot.Cost.Weighted
	r.sum.Delay += w.Delay
	r.sum.Backup += w.Backup
	r.sum.Battery += w.Battery
	r.n++
	if res.Slot.Cost.Clamped {
		r.ClampedSlots++
	}

	n := float64(r.n)
	delay, backup, battery := r.sum.Delay/n, r.sum.Backup/n, r.sum.Battery/n
	r.AvgDelay = append(r.AvgDelay, delay)
	r.AvgBackup = append(r.AvgBackup, backup)
	r.AvgBattery = append(r.AvgBattery, battery)
	r.AvgEnergy = append(r.AvgEnergy, backup+battery)
	r.AvgTotal = append(r.AvgTotal, delay+backup+battery)
}

// Latest returns the final running averages, zero when no slot succeeded.
func (r *Report) Latest() Averages {
	i := len(r.AvgTotal) - 1
	if i < 0 {
		return Averages{}
	}
	return Averages{
		Total:   r.AvgTotal[i],
		Delay:   r.AvgDelay[i],
		Backup:  r.AvgBackup[i],
		Battery: r.AvgBattery[i],
		Energy:  r.AvgEnergy[i],
	}
}

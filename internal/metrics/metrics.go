package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	SlotsTotal           = "edgesim_slots_total"
	InfeasibleSlotsTotal = "edgesim_infeasible_slots_total"
	DegenerateSlotsTotal = "edgesim_degenerate_slots_total"
	EpisodesTotal        = "edgesim_episodes_total"
	SlotCost             = "edgesim_slot_cost"
	SlotReward           = "edgesim_slot_reward"
	BatteryLevel         = "edgesim_battery_level"
	ActiveServers        = "edgesim_active_servers"

	LabelPolicy    = "policy"
	LabelComponent = "component"
)

// Recorder holds the instruments describing simulated slots.
type Recorder struct {
	slots      *prometheus.CounterVec
	infeasible *prometheus.CounterVec
	degenerate *prometheus.CounterVec
	episodes   *prometheus.CounterVec
	cost       *prometheus.GaugeVec
	reward     *prometheus.GaugeVec
	battery    *prometheus.GaugeVec
	servers    *prometheus.GaugeVec
}

// NewRecorder creates the instruments and registers them with registry.
func NewRecorder(registry prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		slots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: SlotsTotal,
				Help: "Total number of simulated slots",
			},
			[]string{LabelPolicy},
		),
		infeasible: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: InfeasibleSlotsTotal,
				Help: "Slots whose action could not be mapped to a feasible allocation",
			},
			[]string{LabelPolicy},
		),
		degenerate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: DegenerateSlotsTotal,
				Help: "Slots rejected because their total cost was not positive",
			},
			[]string{LabelPolicy},
		),
		episodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: EpisodesTotal,
				Help: "Completed episodes",
			},
			[]string{LabelPolicy},
		),
		cost: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: SlotCost,
				Help: "Unweighted cost components and weighted total of the latest slot",
			},
			[]string{LabelPolicy, LabelComponent},
		),
		reward: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: SlotReward,
				Help: "Reward (reciprocal total cost) of the latest slot",
			},
			[]string{LabelPolicy},
		),
		battery: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: BatteryLevel,
				Help: "Battery level after the latest slot",
			},
			[]string{LabelPolicy},
		),
		servers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: ActiveServers,
				Help: "Edge servers activated in the latest slot",
			},
			[]string{LabelPolicy},
		),
	}

	collectors := map[string]prometheus.Collector{
		SlotsTotal:           r.slots,
		InfeasibleSlotsTotal: r.infeasible,
		DegenerateSlotsTotal: r.degenerate,
		EpisodesTotal:        r.episodes,
		SlotCost:             r.cost,
		SlotReward:           r.reward,
		BatteryLevel:         r.battery,
		ActiveServers:        r.servers,
	}
	for name, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %w", name, err)
		}
	}
	return r, nil
}

// SlotOutcome is what the recorder needs from one step.
type SlotOutcome struct {
	Delay, Backup, Battery float64
	Total                  float64
	Reward                 float64
	BatteryLevel           float64
	Servers                int
	Done                   bool
}

// ObserveSlot records one successful slot for policy.
func (r *Recorder) ObserveSlot(policy string, o SlotOutcome) {
	r.slots.WithLabelValues(policy).Inc()
	r.cost.WithLabelValues(policy, "delay").Set(o.Delay)
	r.cost.WithLabelValues(policy, "backup").Set(o.Backup)
	r.cost.WithLabelValues(policy, "battery").Set(o.Battery)
	r.cost.WithLabelValues(policy, "total").Set(o.Total)
	r.reward.WithLabelValues(policy).Set(o.Reward)
	r.battery.WithLabelValues(policy).Set(o.BatteryLevel)
	r.servers.WithLabelValues(policy).Set(float64(o.Servers))
	if o.Done {
		r.episodes.WithLabelValues(policy).Inc()
	}
}

// ObserveInfeasible counts a slot that failed to resolve.
func (r *Recorder) ObserveInfeasible(policy string) {
	r.infeasible.WithLabelValues(policy).Inc()
}

// ObserveDegenerate counts a slot rejected for a non-positive total cost.
func (r *Recorder) ObserveDegenerate(policy string) {
	r.degenerate.WithLabelValues(policy).Inc()
}

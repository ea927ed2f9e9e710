package env

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
)

// SlotReport is the single per-step computation the Environment performs:
// everything needed to score the slot and advance the battery.
type SlotReport struct {
	TimeStep          int           `json:"time_step"`
	Episode           int           `json:"episode"`
	Clock             float64       `json:"clock"`
	Action            float64       `json:"action"`
	Previous          State         `json:"previous"`
	Allocation        Allocation    `json:"allocation"`
	Harvest           float64       `json:"harvest"`
	OperationalDemand float64       `json:"operational_demand"`
	ComputeDemand     float64       `json:"compute_demand"`
	Demand            float64       `json:"demand"`
	Cost              CostBreakdown `json:"cost"`
}

// StepResult is what Step hands back to the driving loop.
type StepResult struct {
	State  State          `json:"state"`
	Reward float64        `json:"reward"`
	Done   bool           `json:"done"`
	Info   map[string]any `json:"info"`
	Slot   SlotReport     `json:"slot"`
}

type options struct {
	seed      uint64
	src       rand.Source
	harvester Harvester
	logger    *zap.Logger
	costFloor float64
	strict    bool
}

// Option configures an Environment.
type Option func(*options)

// WithSeed seeds the environment's own PCG source.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithSource replaces the random source entirely. It takes precedence over WithSeed.
func WithSource(src rand.Source) Option {
	return func(o *options) { o.src = src }
}

// WithHarvester overrides renewable harvest sampling.
func WithHarvester(h Harvester) Option {
	return func(o *options) { o.harvester = h }
}

// WithLogger sets the logger used for infeasible and clamped slots.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCostFloor sets the minimum total cost a slot may report.
func WithCostFloor(floor float64) Option {
	return func(o *options) { o.costFloor = floor }
}

// WithStrictCost fails a slot with ErrDegenerateCost instead of flooring it.
func WithStrictCost() Option {
	return func(o *options) { o.strict = true }
}

// Environment simulates one base station slot by slot. It owns its state, clock
// and random source and is not safe for concurrent use; independent instances
// may run in parallel.
type Environment struct {
	params     Parameters
	bMax       float64
	transition *TransitionModel
	mapper     *ActionMapper
	cost       *CostModel
	logger     *zap.Logger
	strict     bool

	state      State
	clock      float64
	timeStep   int
	episode    int
	terminated bool
	last       CostComponents
}

// New validates p and builds an environment in the reset state.
func New(p Parameters, opts ...Option) (*Environment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	o := options{seed: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	mapper := NewActionMapper(p)
	e := &Environment{
		params:     p,
		bMax:       p.BatteryMax(),
		transition: NewTransitionModel(p, o.src, o.harvester),
		mapper:     mapper,
		cost:       NewCostModel(p, mapper, o.costFloor),
		logger:     o.logger,
		strict:     o.strict,
	}
	e.Reset()
	return e, nil
}

// Reset starts a new episode at midnight with the lowest workload and channel
// delay and a full battery. The episode counter is left alone.
func (e *Environment) Reset() State {
	e.clock = 0
	e.timeStep = 0
	e.terminated = false
	e.state = State{
		Workload:     e.params.WorkloadLow,
		Battery:      e.bMax,
		ChannelDelay: e.params.ChannelDelayLow,
		Regime:       RegimeAt(0),
	}
	return e.state
}

// Step applies action for one slot. The episode is done once StepsPerEpisode
// slots have run; the state is not reset automatically.
//
// A slot that cannot be resolved leaves state, clock and counters untouched and
// terminates the episode: Step keeps returning ErrEpisodeTerminated until Reset.
func (e *Environment) Step(action float64) (StepResult, error) {
	if e.terminated {
		return StepResult{}, ErrEpisodeTerminated
	}

	clock := AdvanceClock(e.clock, e.params.TimeslotDuration)
	regime := RegimeAt(clock)
	harvest := e.transition.Harvest(regime)

	slot, err := e.resolve(action, harvest)
	if err != nil {
		e.terminated = true
		e.logger.Debug("slot failed, episode terminated",
			zap.Int("episode", e.episode),
			zap.Int("time_step", e.timeStep+1),
			zap.Float64("action", action),
			zap.Error(err))
		return StepResult{}, fmt.Errorf("step %d: %w", e.timeStep+1, err)
	}

	e.clock = clock
	e.timeStep++
	slot.Clock = clock
	slot.TimeStep = e.timeStep
	slot.Episode = e.episode
	e.last = slot.Cost.Unweighted

	e.state = State{
		Workload:     e.transition.NextWorkload(),
		Battery:      NextBattery(e.state.Battery, slot.OperationalDemand, slot.Demand, harvest, e.bMax),
		ChannelDelay: e.transition.NextChannelDelay(),
		Regime:       regime,
	}

	done := e.timeStep >= e.params.StepsPerEpisode
	if done {
		e.episode++
	}

	return StepResult{
		State:  e.state,
		Reward: slot.Cost.Reward(),
		Done:   done,
		Info:   map[string]any{},
		Slot:   slot,
	}, nil
}

// resolve computes demands, allocation and cost for the current state once.
func (e *Environment) resolve(action, harvest float64) (SlotReport, error) {
	alloc, err := e.mapper.Map(e.state, action)
	if err != nil {
		return SlotReport{}, err
	}

	dOp := e.params.OperationalDemand(e.state.Workload)
	dCom := e.params.ComputeDemand(alloc.Servers, alloc.Local)
	slot := SlotReport{
		Action:            action,
		Previous:          e.state,
		Allocation:        alloc,
		Harvest:           harvest,
		OperationalDemand: dOp,
		ComputeDemand:     dCom,
		Demand:            dOp + dCom,
	}
	slot.Cost = e.cost.Evaluate(SlotInputs{
		State:             e.state,
		Allocation:        alloc,
		OperationalDemand: dOp,
		Harvest:           harvest,
		Demand:            slot.Demand,
	})

	if slot.Cost.Clamped {
		if e.strict {
			return SlotReport{}, fmt.Errorf("%w: total %.6g", ErrDegenerateCost, slot.Cost.Weighted.Sum())
		}
		e.logger.Debug("slot cost floored",
			zap.Int("time_step", e.timeStep+1),
			zap.Float64("total", slot.Cost.Total))
	}
	return slot, nil
}

// Render returns the unweighted delay, backup and battery costs of the last step.
func (e *Environment) Render() CostComponents {
	return e.last
}

func (e *Environment) State() State { return e.state }

func (e *Environment) Params() Parameters { return e.params }

func (e *Environment) Mapper() *ActionMapper { return e.mapper }

// Clock is the time of day in hours.
func (e *Environment) Clock() float64 { return e.clock }

func (e *Environment) TimeStep() int { return e.timeStep }

// Episode counts completed episodes.
func (e *Environment) Episode() int { return e.episode }

// Terminated reports whether the current episode ended on a failed slot.
func (e *Environment) Terminated() bool { return e.terminated }

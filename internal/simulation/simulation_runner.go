package simulation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/pkg/baseline"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

// Runner drives one environment with one policy, resetting at every episode
// boundary, and reports running cost averages.
type Runner struct {
	env       *env.Environment
	policy    baseline.Policy
	collector Collector
	logger    *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCollector sets where slots and events are recorded.
func WithCollector(c Collector) RunnerOption {
	return func(r *Runner) { r.collector = c }
}

// WithLogger sets the runner's logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner for e and policy.
func NewRunner(e *env.Environment, policy baseline.Policy, opts ...RunnerOption) *Runner {
	r := &Runner{
		env:       e,
		policy:    policy,
		collector: Discard{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run simulates slots steps from a fresh episode. A slot that cannot be resolved
// is recorded as an event and the episode restarts. Cancellation is checked
// between slots; the partial report is returned with the context error.
func (r *Runner) Run(ctx context.Context, slots int) (*Report, error) {
	if slots < 1 {
		return nil, fmt.Errorf("slots must be positive, got %d", slots)
	}

	name := r.policy.Name()
	report := newReport(name, slots)
	log := r.logger.With(zap.String("policy", name))
	log.Info("Starting run", zap.Int("slots", slots))

	r.env.Reset()
	for seq := 0; seq < slots; seq++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		action := r.policy.Act(r.env)
		res, err := r.env.Step(action)
		if err != nil {
			var eventType string
			switch {
			case errors.Is(err, env.ErrInfeasibleAction):
				eventType = database.EventInfeasibleSlot
				report.InfeasibleSlots++
			case errors.Is(err, env.ErrDegenerateCost):
				eventType = database.EventDegenerateCost
				report.DegenerateSlots++
			default:
				return report, fmt.Errorf("slot %d: %w", seq, err)
			}
			log.Warn("Slot failed, restarting episode",
				zap.Int("slot", seq), zap.String("event", eventType), zap.Error(err))
			if cerr := r.collector.CollectEvent(seq, eventType, SeverityWarning, err.Error(),
				map[string]interface{}{"action": action, "state": r.env.State()}); cerr != nil {
				return report, cerr
			}
			r.env.Reset()
			continue
		}

		report.add(res)
		if err := r.collector.CollectSlot(seq, res); err != nil {
			return report, err
		}

		if res.Slot.Cost.Clamped {
			if err := r.collector.CollectEvent(seq, database.EventCostFloored, SeverityInfo,
				"total cost floored", res.Slot.Cost); err != nil {
				return report, err
			}
		}

		if res.Done {
			log.Debug("Episode done",
				zap.Int("episode", r.env.Episode()),
				zap.Float64("avg_total", report.Latest().Total))
			if err := r.collector.CollectEvent(seq, database.EventEpisodeDone, SeverityInfo,
				fmt.Sprintf("episode %d done", r.env.Episode()), nil); err != nil {
				return report, err
			}
			r.env.Reset()
		}
	}

	report.Episodes = r.env.Episode()
	log.Info("Run finished",
		zap.Int("episodes", report.Episodes),
		zap.Int("infeasible_slots", report.InfeasibleSlots),
		zap.Int("degenerate_slots", report.DegenerateSlots),
		zap.Float64("avg_total", report.Latest().Total))
	return report, nil
}

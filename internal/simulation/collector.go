package simulation

import (
	"errors"

	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/internal/metrics"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

// Collector receives every slot and notable event of a run.
type Collector interface {
	CollectSlot(seq int, res env.StepResult) error
	CollectEvent(seq int, eventType, severity, message string, details interface{}) error
}

// Event severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Discard drops everything.
type Discard struct{}

func (Discard) CollectSlot(int, env.StepResult) error { return nil }

func (Discard) CollectEvent(int, string, string, string, interface{}) error { return nil }

// MultiCollector fans out to several collectors and joins their errors.
type MultiCollector []Collector

func (mc MultiCollector) CollectSlot(seq int, res env.StepResult) error {
	var errs []error
	for _, c := range mc {
		errs = append(errs, c.CollectSlot(seq, res))
	}
	return errors.Join(errs...)
}

func (mc MultiCollector) CollectEvent(seq int, eventType, severity, message string, details interface{}) error {
	var errs []error
	for _, c := range mc {
		errs = append(errs, c.CollectEvent(seq, eventType, severity, message, details))
	}
	return errors.Join(errs...)
}

// MetricsCollector feeds slot outcomes into prometheus instruments.
type MetricsCollector struct {
	recorder *metrics.Recorder
	policy   string
}

// NewMetricsCollector labels everything it records with policy.
func NewMetricsCollector(recorder *metrics.Recorder, policy string) *MetricsCollector {
	return &MetricsCollector{recorder: recorder, policy: policy}
}

func (mc *MetricsCollector) CollectSlot(_ int, res env.StepResult) error {
	cost := res.Slot.Cost
	mc.recorder.ObserveSlot(mc.policy, metrics.SlotOutcome{
		Delay:        cost.Unweighted.Delay,
		Backup:       cost.Unweighted.Backup,
		Battery:      cost.Unweighted.Battery,
		Total:        cost.Total,
		Reward:       res.Reward,
		BatteryLevel: res.State.Battery,
		Servers:      res.Slot.Allocation.Servers,
		Done:         res.Done,
	})
	return nil
}

func (mc *MetricsCollector) CollectEvent(_ int, eventType, _, _ string, _ interface{}) error {
	switch eventType {
	case database.EventInfeasibleSlot:
		mc.recorder.ObserveInfeasible(mc.policy)
	case database.EventDegenerateCost:
		mc.recorder.ObserveDegenerate(mc.policy)
	}
	return nil
}

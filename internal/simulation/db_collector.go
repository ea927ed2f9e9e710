package simulation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

// RunMeta describes a run to be recorded.
type RunMeta struct {
	Name        string
	Description string
	Policy      string
	Seed        uint64
	Slots       int
	Parameters  env.Parameters
}

// DBCollector buffers slot records and stores them in the database
type DBCollector struct {
	repo       *database.Repository
	runID      string
	buffer     []database.SlotRecord
	bufferSize int
	lastFlush  time.Time
}

// NewDBCollector creates the run record and a collector writing to it
func NewDBCollector(repo *database.Repository, meta RunMeta, bufferSize int) (*DBCollector, error) {
	if bufferSize < 1 {
		bufferSize = 100
	}

	params, err := json.Marshal(meta.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	now := time.Now()
	run := &database.Run{
		ID:          uuid.New().String(),
		Name:        meta.Name,
		Description: meta.Description,
		Policy:      meta.Policy,
		Seed:        int64(meta.Seed),
		Slots:       meta.Slots,
		StartTime:   now,
		Status:      database.StatusRunning,
		Parameters:  string(params),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := repo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &DBCollector{
		repo:       repo,
		runID:      run.ID,
		buffer:     make([]database.SlotRecord, 0, bufferSize),
		bufferSize: bufferSize,
		lastFlush:  now,
	}, nil
}

// RunID returns the ID of the run being recorded
func (dc *DBCollector) RunID() string {
	return dc.runID
}

// CollectSlot buffers one slot and flushes when the buffer is full or stale
func (dc *DBCollector) CollectSlot(seq int, res env.StepResult) error {
	slot := res.Slot
	prev := slot.Previous
	dc.buffer = append(dc.buffer, database.SlotRecord{
		RunID:    dc.runID,
		Sequence: seq,
		Episode:  slot.Episode,
		TimeStep: slot.TimeStep,
		Clock:    slot.Clock,

		Workload:     prev.Workload,
		Battery:      prev.Battery,
		ChannelDelay: prev.ChannelDelay,
		Regime:       int(prev.Regime),

		Action:        slot.Action,
		Servers:       slot.Allocation.Servers,
		LocalWorkload: slot.Allocation.Local,

		Harvest:           slot.Harvest,
		OperationalDemand: slot.OperationalDemand,
		ComputeDemand:     slot.ComputeDemand,

		DelayCost:   slot.Cost.Unweighted.Delay,
		BackupCost:  slot.Cost.Unweighted.Backup,
		BatteryCost: slot.Cost.Unweighted.Battery,
		TotalCost:   slot.Cost.Total,
		Reward:      res.Reward,
		Clamped:     slot.Cost.Clamped,
		Done:        res.Done,

		CreatedAt: time.Now(),
	})

	if len(dc.buffer) >= dc.bufferSize || time.Since(dc.lastFlush) > 5*time.Second {
		return dc.flush()
	}
	return nil
}

// CollectEvent stores an event in the database
func (dc *DBCollector) CollectEvent(seq int, eventType, severity, message string, details interface{}) error {
	detailsJSON := ""
	if details != nil {
		data, err := json.Marshal(details)
		if err == nil {
			detailsJSON = string(data)
		}
	}

	return dc.repo.SaveEvent(&database.Event{
		RunID:     dc.runID,
		Timestamp: time.Now(),
		Sequence:  seq,
		EventType: eventType,
		Severity:  severity,
		Message:   message,
		Details:   detailsJSON,
		CreatedAt: time.Now(),
	})
}

// flush writes buffered slot records to the database
func (dc *DBCollector) flush() error {
	if len(dc.buffer) == 0 {
		return nil
	}

	if err := dc.repo.SaveSlotRecords(dc.buffer); err != nil {
		return fmt.Errorf("failed to save slot records: %w", err)
	}

	dc.buffer = dc.buffer[:0]
	dc.lastFlush = time.Now()
	return nil
}

// Close flushes remaining records and marks the run with status
func (dc *DBCollector) Close(status string) error {
	if err := dc.flush(); err != nil {
		_ = dc.repo.EndRun(dc.runID, database.StatusFailed)
		return err
	}
	return dc.repo.EndRun(dc.runID, status)
}

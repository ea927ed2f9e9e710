package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new run record
func (r *Repository) CreateRun(run *Run) error {
	return r.db.Create(run).Error
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(id string) (*Run, error) {
	var run Run
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists all runs, newest first, optionally filtered by policy
func (r *Repository) ListRuns(policy string) ([]Run, error) {
	var runs []Run
	query := r.db.Order("created_at DESC")

	if policy != "" {
		query = query.Where("policy = ?", policy)
	}

	err := query.Find(&runs).Error
	return runs, err
}

// EndRun marks a run as finished with the given status
func (r *Repository) EndRun(id string, status string) error {
	now := time.Now()
	return r.db.Model(&Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"end_time":   now,
			"status":     status,
			"updated_at": now,
		}).Error
}

// SaveSlotRecords saves slot records in batches
func (r *Repository) SaveSlotRecords(records []SlotRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.CreateInBatches(records, 100).Error
}

// GetSlotRecords retrieves slot records for a run in slot order
func (r *Repository) GetSlotRecords(runID string, limit int) ([]SlotRecord, error) {
	var records []SlotRecord
	query := r.db.Where("run_id = ?", runID).Order("sequence ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&records).Error
	return records, err
}

// SaveEvent saves an event
func (r *Repository) SaveEvent(event *Event) error {
	return r.db.Create(event).Error
}

// GetEvents retrieves events for a run
func (r *Repository) GetEvents(runID string, eventType string) ([]Event, error) {
	var events []Event
	query := r.db.Where("run_id = ?", runID)

	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	err := query.Order("sequence ASC, id ASC").Find(&events).Error
	return events, err
}

// GetRunSummary gets aggregated stats for a run
func (r *Repository) GetRunSummary(runID string) (*RunSummary, error) {
	run, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Run: run}

	var stats struct {
		SlotCount      int64
		AvgTotalCost   float64
		AvgDelayCost   float64
		AvgBackupCost  float64
		AvgBatteryCost float64
		AvgServers     float64
		AvgBattery     float64
		MinBattery     float64
		TotalReward    float64
	}

	err = r.db.Model(&SlotRecord{}).
		Where("run_id = ?", runID).
		Select("COUNT(*) as slot_count, " +
			"COALESCE(AVG(total_cost), 0) as avg_total_cost, COALESCE(AVG(delay_cost), 0) as avg_delay_cost, " +
			"COALESCE(AVG(backup_cost), 0) as avg_backup_cost, COALESCE(AVG(battery_cost), 0) as avg_battery_cost, " +
			"COALESCE(AVG(servers), 0) as avg_servers, COALESCE(AVG(battery), 0) as avg_battery, " +
			"COALESCE(MIN(battery), 0) as min_battery, COALESCE(SUM(reward), 0) as total_reward").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate slot records: %w", err)
	}

	summary.SlotCount = stats.SlotCount
	summary.AvgTotalCost = stats.AvgTotalCost
	summary.AvgDelayCost = stats.AvgDelayCost
	summary.AvgBackupCost = stats.AvgBackupCost
	summary.AvgBatteryCost = stats.AvgBatteryCost
	summary.AvgServers = stats.AvgServers
	summary.AvgBattery = stats.AvgBattery
	summary.MinBattery = stats.MinBattery
	summary.TotalReward = stats.TotalReward

	counts := []struct {
		name  string
		query *gorm.DB
		dest  *int64
	}{
		{"episodes", r.db.Model(&SlotRecord{}).Where("run_id = ? AND done = ?", runID, true), &summary.Episodes},
		{"clamped slots", r.db.Model(&SlotRecord{}).Where("run_id = ? AND clamped = ?", runID, true), &summary.ClampedSlots},
		{"infeasible slots", r.db.Model(&Event{}).Where("run_id = ? AND event_type = ?", runID, EventInfeasibleSlot), &summary.InfeasibleSlots},
		{"degenerate slots", r.db.Model(&Event{}).Where("run_id = ? AND event_type = ?", runID, EventDegenerateCost), &summary.DegenerateSlots},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}

	return summary, nil
}

// DeleteRun deletes a run and all related data
func (r *Repository) DeleteRun(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&SlotRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&Event{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *DB
	repo *Repository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := NewDatabase(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.repo = NewRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *RepositoryTestSuite) createRun(id, policy string) *Run {
	run := &Run{
		ID:        id,
		Name:      "run " + id,
		Policy:    policy,
		Status:    StatusRunning,
		StartTime: time.Now(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Require().NoError(s.repo.CreateRun(run))
	return run
}

func (s *RepositoryTestSuite) TestRunLifecycle() {
	s.createRun("a", "fixed")

	got, err := s.repo.GetRun("a")
	s.Require().NoError(err)
	s.Equal("fixed", got.Policy)
	s.Nil(got.EndTime)

	s.Require().NoError(s.repo.EndRun("a", StatusCompleted))
	got, err = s.repo.GetRun("a")
	s.Require().NoError(err)
	s.Equal(StatusCompleted, got.Status)
	s.NotNil(got.EndTime)

	_, err = s.repo.GetRun("missing")
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestListRunsFiltersByPolicy() {
	s.createRun("a", "fixed")
	s.createRun("b", "myopic")
	s.createRun("c", "myopic")

	all, err := s.repo.ListRuns("")
	s.Require().NoError(err)
	s.Len(all, 3)

	myopic, err := s.repo.ListRuns("myopic")
	s.Require().NoError(err)
	s.Len(myopic, 2)
}

func (s *RepositoryTestSuite) TestSlotRecordsAndSummary() {
	s.createRun("a", "fixed")

	records := make([]SlotRecord, 0, 250)
	for i := 0; i < 250; i++ {
		records = append(records, SlotRecord{
			RunID:     "a",
			Sequence:  i,
			Servers:   2,
			Battery:   float64(1000 + i),
			DelayCost: 1,
			TotalCost: 2,
			Reward:    0.5,
			Done:      i%96 == 95,
			Clamped:   i == 7,
		})
	}
	s.Require().NoError(s.repo.SaveSlotRecords(records))
	s.Require().NoError(s.repo.SaveSlotRecords(nil))

	got, err := s.repo.GetSlotRecords("a", 10)
	s.Require().NoError(err)
	s.Len(got, 10)
	s.Equal(0, got[0].Sequence)
	s.Equal(9, got[9].Sequence)

	all, err := s.repo.GetSlotRecords("a", 0)
	s.Require().NoError(err)
	s.Len(all, 250)

	s.Require().NoError(s.repo.SaveEvent(&Event{RunID: "a", Sequence: 3, EventType: EventInfeasibleSlot, Timestamp: time.Now()}))

	summary, err := s.repo.GetRunSummary("a")
	s.Require().NoError(err)
	s.Equal(int64(250), summary.SlotCount)
	s.Equal(int64(2), summary.Episodes)
	s.Equal(int64(1), summary.ClampedSlots)
	s.Equal(int64(1), summary.InfeasibleSlots)
	s.InDelta(2.0, summary.AvgTotalCost, 1e-9)
	s.InDelta(2.0, summary.AvgServers, 1e-9)
	s.InDelta(1000.0, summary.MinBattery, 1e-9)
	s.InDelta(125.0, summary.TotalReward, 1e-9)
}

func (s *RepositoryTestSuite) TestSummaryOfEmptyRun() {
	s.createRun("empty", "random")

	summary, err := s.repo.GetRunSummary("empty")
	s.Require().NoError(err)
	s.Zero(summary.SlotCount)
	s.Zero(summary.AvgTotalCost)
}

func (s *RepositoryTestSuite) TestSummaryCountsFailedSlotsSeparately() {
	s.createRun("a", "constant")
	types := []string{EventInfeasibleSlot, EventDegenerateCost, EventDegenerateCost, EventEpisodeDone}
	for i, typ := range types {
		s.Require().NoError(s.repo.SaveEvent(&Event{RunID: "a", Sequence: i, EventType: typ, Timestamp: time.Now()}))
	}

	summary, err := s.repo.GetRunSummary("a")
	s.Require().NoError(err)
	s.Equal(int64(1), summary.InfeasibleSlots)
	s.Equal(int64(2), summary.DegenerateSlots)
}

func (s *RepositoryTestSuite) TestSummaryReportsCountFailures() {
	s.createRun("a", "fixed")
	s.Require().NoError(s.db.Migrator().DropTable(&Event{}))

	_, err := s.repo.GetRunSummary("a")
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to count infeasible slots")
}

func (s *RepositoryTestSuite) TestEventsFilteredByType() {
	s.createRun("a", "fixed")
	for i, typ := range []string{EventEpisodeDone, EventInfeasibleSlot, EventEpisodeDone} {
		s.Require().NoError(s.repo.SaveEvent(&Event{
			RunID:     "a",
			Sequence:  i,
			EventType: typ,
			Message:   fmt.Sprintf("event %d", i),
			Timestamp: time.Now(),
		}))
	}

	events, err := s.repo.GetEvents("a", EventEpisodeDone)
	s.Require().NoError(err)
	s.Len(events, 2)

	events, err = s.repo.GetEvents("a", "")
	s.Require().NoError(err)
	s.Len(events, 3)
	s.Equal("event 0", events[0].Message)
}

func (s *RepositoryTestSuite) TestDeleteRunRemovesRelatedData() {
	s.createRun("a", "fixed")
	s.Require().NoError(s.repo.SaveSlotRecords([]SlotRecord{{RunID: "a"}, {RunID: "a", Sequence: 1}}))
	s.Require().NoError(s.repo.SaveEvent(&Event{RunID: "a", EventType: EventEpisodeDone}))

	s.Require().NoError(s.repo.DeleteRun("a"))

	_, err := s.repo.GetRun("a")
	s.Error(err)
	records, err := s.repo.GetSlotRecords("a", 0)
	s.Require().NoError(err)
	s.Empty(records)

	s.ErrorIs(s.repo.DeleteRun("a"), gorm.ErrRecordNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestNewDatabaseOnDisk(t *testing.T) {
	path := t.TempDir() + "/analytics.db"
	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, NewRepository(db).CreateRun(&Run{ID: "kept", Policy: "fixed", Status: StatusCompleted, StartTime: time.Now()}))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()
	run, err := NewRepository(db).GetRun("kept")
	require.NoError(t, err)
	assert.Equal(t, "fixed", run.Policy)
}

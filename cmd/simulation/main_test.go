package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlundberg/offload-autoscale-env/internal/database"
)

func execute(t *testing.T, args ...string) (string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs", "analytics.db")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", "", "--db", dbPath, "--log-level", "error"}, args...))
	require.NoError(t, cmd.Execute())
	return out.String(), dbPath
}

func TestSimulationCommandStoresRun(t *testing.T) {
	out, dbPath := execute(t, "--policy", "fixed", "--budget", "900", "--slots", "40", "--seed", "7")

	assert.Contains(t, out, "Policy")
	assert.Contains(t, out, "fixed")
	assert.Contains(t, out, "Avg total cost")

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()
	repo := database.NewRepository(db)

	runs, err := repo.ListRuns("fixed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, database.StatusCompleted, runs[0].Status)
	assert.Equal(t, int64(7), runs[0].Seed)

	records, err := repo.GetSlotRecords(runs[0].ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 40)
}

func TestSimulationCommandReadsEnvironment(t *testing.T) {
	t.Setenv("EDGESIM_POLICY", "constant")
	t.Setenv("EDGESIM_ACTION", "0.3")

	out, _ := execute(t, "--slots", "5")
	assert.Contains(t, out, "constant")
}

func TestSimulationCommandRejectsUnknownPolicy(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "", "--db", filepath.Join(t.TempDir(), "a.db"), "--policy", "ppo"})
	assert.Error(t, cmd.Execute())
}

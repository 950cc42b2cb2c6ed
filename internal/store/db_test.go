package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-load-profiles/internal/model"
)

func testConfig() model.ScenarioConfig {
	return model.ScenarioConfig{
		State:    "CO",
		Runs:     2,
		Period:   model.PeriodConfig{Start: "2018-01-01", End: "2018-01-03"},
		Channels: []model.ChannelConfig{{Name: "electricity"}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "runs.db")))

	require.NoError(t, SaveRun("run-1", testConfig()))
	require.NoError(t, UpdateRunStatus("run-1", "running"))
	require.NoError(t, SaveStageProgress("run-1", 0, "selection", "started"))
	require.NoError(t, SaveStageProgress("run-1", 0, "selection", "completed"))
	require.NoError(t, SaveRunError("run-1", errors.New("boom")))
	require.NoError(t, SaveRunError("run-1", nil)) // nil errors are dropped

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "running", run["status"])
	cfg, ok := run["config"].(model.ScenarioConfig)
	require.True(t, ok)
	assert.Equal(t, "CO", cfg.State)

	runs, err := ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0]["id"])

	errs, err := GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0]["error"])

	progress, err := GetStageProgress("run-1")
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, "selection", progress[0]["stage"])
	assert.Equal(t, "completed", progress[1]["status"])
}

func TestStoreGetRunMissing(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "runs.db")))
	_, err := GetRun("nope")
	require.Error(t, err)
}

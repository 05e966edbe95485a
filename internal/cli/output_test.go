package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/davidthor/auractl/pkg/aura"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValidateOutput(t *testing.T) {
	for _, f := range []string{"json", "yaml", "table"} {
		assert.NoError(t, validateOutput(f))
	}
	err := validateOutput("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestWriteOutput_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	snap := aura.Record{"snapshot_id": "snap-1", "status": "Completed"}

	require.NoError(t, writeOutput(buf, outputJSON, snap, recordTable(snap)))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "snap-1", got["snapshot_id"])
}

func TestWriteOutput_YAMLUsesJSONFieldNames(t *testing.T) {
	buf := &bytes.Buffer{}
	res := &aura.RestoreResult{
		RunID:            "run-1",
		Environment:      "staging",
		TargetInstanceID: "abc123",
		SnapshotID:       "snap-1",
		Response:         aura.Record{"status": "running"},
	}

	require.NoError(t, writeOutput(buf, outputYAML, res, restoreTable(res)))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "abc123", got["target_instance_id"])
	_, hasSource := got["source_instance_id"]
	assert.False(t, hasSource)
}

func TestWriteOutput_Tables(t *testing.T) {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	run := &types.RunRecord{
		ID:               "run-1",
		Workflow:         types.WorkflowBackupResetRestore,
		InstanceID:       "abc123",
		Status:           types.RunStatusFailed,
		BackupSnapshotID: "snap-1",
		FailedPhase:      "reset",
		Phases: []types.PhaseRecord{
			{Name: "backup", Status: types.RunStatusSucceeded, SnapshotID: "snap-1", StartedAt: started, FinishedAt: started.Add(90 * time.Second)},
			{Name: "reset", Status: types.RunStatusFailed, SnapshotID: "blank-1", Error: "[REMOTE_FAILURE] instance abc123 reported error"},
		},
	}

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "snapshots",
			contains: []string{"SNAPSHOT ID", "snap-1", "snap-2", "Completed"},
		},
		{
			name:     "run",
			contains: []string{"PHASE", "backup", "reset", "1m30s", "REMOTE_FAILURE", "snap-1"},
		},
		{
			name:     "runs",
			contains: []string{"FAILED PHASE", "run-1", "backup-reset-restore"},
		},
		{
			name:     "record",
			contains: []string{"KEY", "VALUE", "status", "running", `{"k":"v"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			var err error
			switch tt.name {
			case "snapshots":
				snaps := []aura.Record{
					{"snapshot_id": "snap-1", "status": "Completed", "timestamp": "2024-06-01T12:00:00Z"},
					{"id": "snap-2", "status": "Completed"},
				}
				err = writeOutput(buf, outputTable, snaps, snapshotsTable(snaps))
			case "run":
				err = writeOutput(buf, outputTable, run, runTable(run))
			case "runs":
				refs := []types.RunRef{run.Ref()}
				err = writeOutput(buf, outputTable, refs, runsTable(refs))
			case "record":
				rec := map[string]interface{}{"status": "running", "nested": map[string]interface{}{"k": "v"}}
				err = writeOutput(buf, outputTable, rec, recordTable(rec))
			}
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	err := writeOutput(&bytes.Buffer{}, "xml", nil, nil)
	require.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
	assert.Equal(t, "line one line two", truncateString("line one\nline two", 40))
}

// Package types defines the run records persisted by auractl.
package types

import (
	"time"
)

// Workflow names a kind of recorded run.
type Workflow string

const (
	WorkflowRestore            Workflow = "restore"
	WorkflowBackupResetRestore Workflow = "backup-reset-restore"
	WorkflowResume             Workflow = "resume"
)

// RunStatus represents the status of a run or of one of its phases.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// Terminal reports whether s will not change again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusSkipped:
		return true
	default:
		return false
	}
}

// PhaseRecord is one step of a run.
type PhaseRecord struct {
	Name             string                 `json:"name"`
	Status           RunStatus              `json:"status"`
	TargetInstanceID string                 `json:"target_instance_id,omitempty"`
	SourceInstanceID string                 `json:"source_instance_id,omitempty"`
	SnapshotID       string                 `json:"snapshot_id,omitempty"`
	Response         map[string]interface{} `json:"response,omitempty"`
	Error            string                 `json:"error,omitempty"`
	StartedAt        time.Time              `json:"started_at,omitempty"`
	FinishedAt       time.Time              `json:"finished_at,omitempty"`
}

// RunRecord is the audit entry of one restore or backup-reset-restore call.
type RunRecord struct {
	ID          string    `json:"id"`
	Workflow    Workflow  `json:"workflow"`
	Environment string    `json:"environment"`
	InstanceID  string    `json:"instance_id"`
	Status      RunStatus `json:"status"`

	// BackupSnapshotID is the snapshot taken before any destructive step.
	// After a failed final restore it is what a resume restores from.
	BackupSnapshotID string `json:"backup_snapshot_id,omitempty"`
	BlankSnapshotID  string `json:"blank_snapshot_id,omitempty"`

	// ResumedFrom links a resume run to the run it completed.
	ResumedFrom string `json:"resumed_from,omitempty"`

	Phases      []PhaseRecord `json:"phases"`
	FailedPhase string        `json:"failed_phase,omitempty"`
	Error       string        `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Phase returns the named phase, or nil.
func (r *RunRecord) Phase(name string) *PhaseRecord {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i]
		}
	}
	return nil
}

// RunRef is the summary of a run returned by listings.
type RunRef struct {
	ID               string    `json:"id"`
	Workflow         Workflow  `json:"workflow"`
	Environment      string    `json:"environment"`
	InstanceID       string    `json:"instance_id"`
	Status           RunStatus `json:"status"`
	FailedPhase      string    `json:"failed_phase,omitempty"`
	BackupSnapshotID string    `json:"backup_snapshot_id,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitempty"`
}

// Ref summarizes the record.
func (r *RunRecord) Ref() RunRef {
	return RunRef{
		ID:               r.ID,
		Workflow:         r.Workflow,
		Environment:      r.Environment,
		InstanceID:       r.InstanceID,
		Status:           r.Status,
		FailedPhase:      r.FailedPhase,
		BackupSnapshotID: r.BackupSnapshotID,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
}

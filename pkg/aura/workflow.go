package aura

import (
	"context"
	"strings"

	"github.com/davidthor/auractl/pkg/errors"
	"github.com/davidthor/auractl/pkg/state/types"
)

// WorkflowOptions configures BackupResetRestore.
type WorkflowOptions struct {
	// Environment selects the configured instance; empty uses the default.
	Environment string

	// Instance overrides the configured live instance.
	Instance string

	// BlankSnapshotID overrides reset_workflow.snapshot_id.
	BlankSnapshotID string

	// BlankSourceInstance overrides reset_workflow.source_instance_id.
	BlankSourceInstance string

	// Await blocks on the final restore. The backup and reset phases are
	// always waited for because each later phase depends on them.
	Await bool
}

// BackupResetRestore snapshots the live instance, resets it from the blank
// snapshot, then restores it from the backup:
//
//  1. backup: create a snapshot of the live instance and wait for Completed.
//  2. reset: overwrite the instance from the blank snapshot and wait for it
//     to be running.
//  3. restore: overwrite the instance from the backup, with the live instance
//     as source.
//
// The returned run record lists every phase attempted. On failure it is
// returned together with the error, FailedPhase names the phase, and no later
// phase runs. Nothing is rolled back: after a failed restore the instance
// holds blank data until the backup (BackupSnapshotID) is restored, for
// example with Resume.
func (o *Orchestrator) BackupResetRestore(ctx context.Context, opts WorkflowOptions) (*types.RunRecord, error) {
	resolved, err := o.Resolve(ctx, opts.Environment, opts.Instance)
	if err != nil {
		return nil, err
	}
	live := resolved.InstanceID

	blankRef := strings.TrimSpace(opts.BlankSnapshotID)
	if blankRef == "" {
		blankRef = o.cfg.ResetWorkflow.SnapshotID
	}
	blank, err := o.refs.Resolve(ctx, strings.TrimSpace(blankRef))
	if err != nil {
		return nil, err
	}
	if blank = strings.TrimSpace(blank); blank == "" {
		return nil, errors.ConfigError("a blank snapshot id is required for backup-reset-restore", map[string]interface{}{
			"setting":     "neo4j.backup.reset_workflow.snapshot_id",
			"environment": resolved.Environment,
		})
	}

	blankSourceRef := opts.BlankSourceInstance
	if strings.TrimSpace(blankSourceRef) == "" {
		blankSourceRef = o.cfg.ResetWorkflow.SourceInstanceID
	}
	blankSource, err := o.resolver.ResolveOptional(ctx, "reset_workflow.source_instance_id", blankSourceRef)
	if err != nil {
		return nil, err
	}

	t := o.startRun(ctx, &types.RunRecord{
		Workflow:        types.WorkflowBackupResetRestore,
		Environment:     resolved.Environment,
		InstanceID:      live,
		BlankSnapshotID: blank,
	})

	// Phase 1
	idx := t.begin(ctx, types.PhaseRecord{Name: PhaseBackup, TargetInstanceID: live})
	created, backupID, err := o.CreateSnapshot(ctx, live)
	if err != nil {
		return t.run, t.fail(ctx, idx, created, err)
	}
	t.run.BackupSnapshotID = backupID
	t.run.Phases[idx].SnapshotID = backupID

	o.progress("backup: snapshot %s of %s created, waiting for completion", backupID, live)
	snap, err := o.WaitForSnapshot(ctx, backupID, live)
	if err != nil {
		return t.run, t.fail(ctx, idx, snap, err)
	}
	t.succeed(ctx, idx, snap)

	// Phase 2
	if _, err := o.overwritePhase(ctx, t, PhaseReset, live, blank, blankSource, true); err != nil {
		return t.run, err
	}

	// Phase 3
	if _, err := o.overwritePhase(ctx, t, PhaseRestore, live, backupID, live, opts.Await); err != nil {
		return t.run, err
	}

	t.complete(ctx)
	return t.run, nil
}

// Resume finishes a backup-reset-restore run that failed after its backup
// completed, by restoring the instance from the recorded backup snapshot. It
// is recorded as a new run linked to prev.
func (o *Orchestrator) Resume(ctx context.Context, prev *types.RunRecord, await bool) (*types.RunRecord, error) {
	if err := resumable(prev); err != nil {
		return nil, err
	}

	live := prev.InstanceID
	t := o.startRun(ctx, &types.RunRecord{
		Workflow:         types.WorkflowResume,
		Environment:      prev.Environment,
		InstanceID:       live,
		BackupSnapshotID: prev.BackupSnapshotID,
		BlankSnapshotID:  prev.BlankSnapshotID,
		ResumedFrom:      prev.ID,
	})

	if _, err := o.overwritePhase(ctx, t, PhaseRestore, live, prev.BackupSnapshotID, live, await); err != nil {
		return t.run, err
	}
	t.complete(ctx)
	return t.run, nil
}

func resumable(run *types.RunRecord) error {
	if run == nil {
		return errors.New(errors.ErrCodeValidation, "no run to resume")
	}
	details := map[string]interface{}{
		"run_id":       run.ID,
		"workflow":     string(run.Workflow),
		"status":       string(run.Status),
		"failed_phase": run.FailedPhase,
	}
	switch {
	case run.Workflow != types.WorkflowBackupResetRestore:
		return errors.New(errors.ErrCodeValidation, "only backup-reset-restore runs can be resumed").WithDetails(details)
	case run.Status != types.RunStatusFailed:
		return errors.New(errors.ErrCodeValidation, "run did not fail; nothing to resume").WithDetails(details)
	case run.FailedPhase != PhaseReset && run.FailedPhase != PhaseRestore:
		return errors.New(errors.ErrCodeValidation, "run failed before the instance was modified; nothing to resume").WithDetails(details)
	case run.BackupSnapshotID == "" || run.InstanceID == "":
		return errors.New(errors.ErrCodeValidation, "run record has no backup snapshot").WithDetails(details)
	}
	return nil
}

package aura

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidthor/auractl/pkg/errors"
	"github.com/davidthor/auractl/pkg/state/types"
	"go.uber.org/zap"
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// Environment selects the configured instance; empty uses the default.
	Environment string

	// SnapshotID to restore. When empty, UseLatest must be set.
	SnapshotID string

	// UseLatest restores the most recent snapshot of the source instance
	// (or of the target when there is no distinct source).
	UseLatest bool

	// SourceInstance overrides the configured source instance.
	SourceInstance string

	// TargetInstance overrides the configured restore target.
	TargetInstance string

	// Await blocks until the target reports running or ready.
	Await bool
}

// RestoreResult describes a restore call.
type RestoreResult struct {
	RunID            string `json:"run_id"`
	Environment      string `json:"environment"`
	TargetInstanceID string `json:"target_instance_id"`
	SourceInstanceID string `json:"source_instance_id,omitempty"`
	SnapshotID       string `json:"snapshot_id"`

	// Response is the overwrite acknowledgement, or the final instance record
	// when the restore was awaited.
	Response Record `json:"response"`
}

// Restore overwrites the target instance from a snapshot.
func (o *Orchestrator) Restore(ctx context.Context, opts RestoreOptions) (*RestoreResult, error) {
	resolved, err := o.Resolve(ctx, opts.Environment, opts.TargetInstance)
	if err != nil {
		return nil, err
	}
	target := resolved.RestoreTargetID

	source := resolved.SourceInstanceID
	if strings.TrimSpace(opts.SourceInstance) != "" {
		if source, err = o.resolver.ResolveValue(ctx, "source instance override", opts.SourceInstance); err != nil {
			return nil, err
		}
	}
	if source == target {
		// aura-cli then applies its own default source.
		o.logger.Debug("source instance equals restore target; omitting it", zap.String("instance_id", target))
		source = ""
	}

	snapID := strings.TrimSpace(opts.SnapshotID)
	if snapID == "" {
		if !opts.UseLatest {
			return nil, errors.New(errors.ErrCodeValidation, "a snapshot id is required unless the latest snapshot is requested").
				WithDetail("target_instance_id", target)
		}
		from := source
		if from == "" {
			from = target
		}
		snap, err := o.LatestSnapshot(ctx, from)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no snapshots found for instance %s", from)).
				WithDetail("instance_id", from)
		}
		if snapID = snapshotID(snap); snapID == "" {
			return nil, errors.ProtocolError("instance snapshot list", "snapshot_id", map[string]interface{}(snap))
		}
		o.logger.Info("using latest snapshot", zap.String("instance_id", from), zap.String("snapshot_id", snapID),
			zap.String("timestamp", snap.Field("timestamp")))
	}

	result := &RestoreResult{
		Environment:      resolved.Environment,
		TargetInstanceID: target,
		SourceInstanceID: source,
		SnapshotID:       snapID,
	}

	t := o.startRun(ctx, &types.RunRecord{
		Workflow:    types.WorkflowRestore,
		Environment: resolved.Environment,
		InstanceID:  target,
	})
	result.RunID = t.run.ID

	resp, err := o.overwritePhase(ctx, t, PhaseRestore, target, snapID, source, opts.Await)
	result.Response = resp
	if err != nil {
		return result, err
	}
	t.complete(ctx)
	return result, nil
}

// Overwrite replaces target's data with snapshotID. sourceID may be empty,
// in which case aura-cli's default source applies.
func (o *Orchestrator) Overwrite(ctx context.Context, targetID, snapshotID, sourceID string) (Record, error) {
	args := []string{"instance", "overwrite", targetID, "--source-snapshot-id", snapshotID}
	if sourceID != "" {
		args = append(args, "--source-instance-id", sourceID)
	}
	return o.run(ctx, args...)
}

// overwritePhase runs one recorded overwrite, waiting for the target when
// await is set.
func (o *Orchestrator) overwritePhase(ctx context.Context, t *tracker, name, target, snapID, source string, await bool) (Record, error) {
	idx := t.begin(ctx, types.PhaseRecord{
		Name:             name,
		TargetInstanceID: target,
		SourceInstanceID: source,
		SnapshotID:       snapID,
	})

	ack, err := o.Overwrite(ctx, target, snapID, source)
	if err != nil {
		return nil, t.fail(ctx, idx, nil, err)
	}
	if !await {
		t.succeed(ctx, idx, ack)
		return ack, nil
	}

	o.progress("%s: overwrite of %s from %s accepted, waiting for the instance", name, target, snapID)
	inst, err := o.WaitForInstance(ctx, target)
	if err != nil {
		return inst, t.fail(ctx, idx, inst, err)
	}
	t.succeed(ctx, idx, inst)
	return inst, nil
}

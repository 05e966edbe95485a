package aura

import (
	"context"
	"strings"
	"time"

	"github.com/davidthor/auractl/pkg/errors"
	"go.uber.org/zap"
)

// SnapshotOptions configures Snapshot.
type SnapshotOptions struct {
	// Environment selects the configured instance; empty uses the default.
	Environment string

	// Instance overrides the configured instance id.
	Instance string

	// Await blocks until the snapshot is Completed.
	Await bool
}

// Snapshot resolves the live instance and snapshots it. Without Await the raw
// create response is returned unchanged; with Await the completed snapshot
// record is returned.
func (o *Orchestrator) Snapshot(ctx context.Context, opts SnapshotOptions) (Record, error) {
	resolved, err := o.Resolve(ctx, opts.Environment, opts.Instance)
	if err != nil {
		return nil, err
	}

	resp, snapID, err := o.CreateSnapshot(ctx, resolved.InstanceID)
	if err != nil {
		return nil, err
	}
	if !opts.Await {
		return resp, nil
	}
	return o.WaitForSnapshot(ctx, snapID, resolved.InstanceID)
}

// CreateSnapshot starts a snapshot of instanceID and returns the raw response
// and the new snapshot id. A response without an id is a protocol error.
func (o *Orchestrator) CreateSnapshot(ctx context.Context, instanceID string) (Record, string, error) {
	resp, err := o.run(ctx, "instance", "snapshot", "create", "--instance-id", instanceID)
	if err != nil {
		return nil, "", err
	}

	id := snapshotID(resp)
	if id == "" {
		return resp, "", errors.ProtocolError("instance snapshot create", "snapshot_id", map[string]interface{}(resp)).
			WithDetail("instance_id", instanceID)
	}

	o.logger.Info("snapshot created",
		zap.String("instance_id", instanceID),
		zap.String("snapshot_id", id),
		zap.String("status", resp.Status()))
	return resp, id, nil
}

// ListSnapshots lists the snapshots of instanceID, optionally only those
// taken on date (YYYY-MM-DD). The result is never nil.
func (o *Orchestrator) ListSnapshots(ctx context.Context, instanceID, date string) ([]Record, error) {
	args := []string{"instance", "snapshot", "list", "--instance-id", instanceID}
	if date = strings.TrimSpace(date); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, errors.New(errors.ErrCodeValidation, "date must be formatted as YYYY-MM-DD").
				WithDetail("date", date)
		}
		args = append(args, "--date", date)
	}

	resp, err := o.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return unwrapList(resp), nil
}

// GetSnapshot fetches one snapshot record.
func (o *Orchestrator) GetSnapshot(ctx context.Context, snapshotID, instanceID string) (Record, error) {
	resp, err := o.run(ctx, "instance", "snapshot", "get", snapshotID, "--instance-id", instanceID)
	if err != nil {
		return nil, err
	}
	return unwrapOne(resp), nil
}

// LatestSnapshot returns the snapshot of instanceID with the greatest
// timestamp, or nil when there are none.
func (o *Orchestrator) LatestSnapshot(ctx context.Context, instanceID string) (Record, error) {
	snapshots, err := o.ListSnapshots(ctx, instanceID, "")
	if err != nil {
		return nil, err
	}
	return latest(snapshots), nil
}

// GetInstance fetches the instance record.
func (o *Orchestrator) GetInstance(ctx context.Context, instanceID string) (Record, error) {
	resp, err := o.run(ctx, "instance", "get", instanceID)
	if err != nil {
		return nil, err
	}
	return unwrapOne(resp), nil
}

package aura

import (
	"context"

	"github.com/davidthor/auractl/pkg/events"
	"github.com/davidthor/auractl/pkg/state/types"
	"go.uber.org/zap"
)

// Workflow phase names.
const (
	PhaseBackup  = "backup"
	PhaseReset   = "reset"
	PhaseRestore = "restore"
)

// tracker keeps the run record of one call current in the recorder and
// announces phase transitions. Every side effect here is best effort.
type tracker struct {
	o      *Orchestrator
	run    *types.RunRecord
	logger *zap.Logger
}

func (o *Orchestrator) startRun(ctx context.Context, run *types.RunRecord) *tracker {
	run.ID = o.newRunID()
	run.Status = types.RunStatusRunning
	run.StartedAt = o.now()
	if run.Phases == nil {
		run.Phases = []types.PhaseRecord{}
	}

	t := &tracker{
		o:   o,
		run: run,
		logger: o.logger.With(
			zap.String("run_id", run.ID),
			zap.String("workflow", string(run.Workflow)),
		),
	}
	t.logger.Info("run started", zap.String("environment", run.Environment), zap.String("instance_id", run.InstanceID))
	t.save(ctx)
	return t
}

// begin appends a running phase and returns its index.
func (t *tracker) begin(ctx context.Context, phase types.PhaseRecord) int {
	phase.Status = types.RunStatusRunning
	phase.StartedAt = t.o.now()
	t.run.Phases = append(t.run.Phases, phase)

	t.logger.Info("phase started",
		zap.String("phase", phase.Name),
		zap.String("target_instance_id", phase.TargetInstanceID),
		zap.String("snapshot_id", phase.SnapshotID))
	t.save(ctx)
	t.notify(ctx, events.TypeStarted, &t.run.Phases[len(t.run.Phases)-1])
	return len(t.run.Phases) - 1
}

func (t *tracker) succeed(ctx context.Context, idx int, resp Record) {
	p := &t.run.Phases[idx]
	p.Status = types.RunStatusSucceeded
	p.FinishedAt = t.o.now()
	if resp != nil {
		p.Response = map[string]interface{}(resp)
	}

	t.logger.Info("phase succeeded", zap.String("phase", p.Name), zap.Duration("duration", p.FinishedAt.Sub(p.StartedAt)))
	t.observe(p.Name, types.RunStatusSucceeded)
	t.save(ctx)
	t.notify(ctx, events.TypeSucceeded, p)
}

// fail marks the phase and the run failed. It returns err for convenience.
func (t *tracker) fail(ctx context.Context, idx int, resp Record, err error) error {
	p := &t.run.Phases[idx]
	p.Status = types.RunStatusFailed
	p.FinishedAt = t.o.now()
	p.Error = err.Error()
	if resp != nil {
		p.Response = map[string]interface{}(resp)
	}

	t.run.Status = types.RunStatusFailed
	t.run.FailedPhase = p.Name
	t.run.Error = err.Error()
	t.run.FinishedAt = p.FinishedAt

	t.logger.Error("phase failed", zap.String("phase", p.Name), zap.Error(err))
	t.observe(p.Name, types.RunStatusFailed)
	t.save(ctx)
	t.notify(ctx, events.TypeFailed, p)
	return err
}

func (t *tracker) complete(ctx context.Context) {
	t.run.Status = types.RunStatusSucceeded
	t.run.FinishedAt = t.o.now()
	t.logger.Info("run succeeded", zap.Duration("duration", t.run.FinishedAt.Sub(t.run.StartedAt)))
	t.save(ctx)
}

func (t *tracker) save(ctx context.Context) {
	if t.o.recorder == nil {
		return
	}
	// A cancelled call still gets its final state recorded.
	if err := t.o.recorder.SaveRun(context.WithoutCancel(ctx), t.run); err != nil {
		t.logger.Warn("failed to save run record", zap.Error(err))
	}
}

func (t *tracker) observe(phase string, status types.RunStatus) {
	if t.o.observer != nil {
		t.o.observer.ObservePhase(phase, string(status))
	}
}

func (t *tracker) notify(ctx context.Context, typ string, p *types.PhaseRecord) {
	err := t.o.notifier.Notify(context.WithoutCancel(ctx), events.Event{
		Type:             typ,
		RunID:            t.run.ID,
		Workflow:         string(t.run.Workflow),
		Phase:            p.Name,
		Environment:      t.run.Environment,
		TargetInstanceID: p.TargetInstanceID,
		SourceInstanceID: p.SourceInstanceID,
		SnapshotID:       p.SnapshotID,
		Error:            p.Error,
		Time:             t.o.now(),
	})
	if err != nil {
		t.logger.Warn("failed to publish event", zap.String("type", typ), zap.String("phase", p.Name), zap.Error(err))
	}
}

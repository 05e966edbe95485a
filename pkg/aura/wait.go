package aura

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/davidthor/auractl/pkg/errors"
	"github.com/davidthor/auractl/pkg/poll"
	"go.uber.org/zap"
)

// Snapshot statuses.
const (
	SnapshotCompleted = "Completed"
	SnapshotFailed    = "Failed"
)

var (
	instanceReady  = []string{"running", "ready"}
	instanceFailed = []string{"failed", "error", "suspended"}
)

func classifySnapshot(r Record) poll.Outcome {
	switch r.Status() {
	case SnapshotCompleted:
		return poll.Succeeded
	case SnapshotFailed:
		return poll.Failed
	default:
		return poll.Pending
	}
}

func classifyInstance(r Record) poll.Outcome {
	status := strings.ToLower(r.Status())
	for _, s := range instanceReady {
		if status == s {
			return poll.Succeeded
		}
	}
	for _, s := range instanceFailed {
		if status == s {
			return poll.Failed
		}
	}
	return poll.Pending
}

// WaitForSnapshot polls the snapshot until it is Completed and returns the
// final record. A Failed snapshot is a REMOTE_FAILURE error; running out of
// operation time is a TIMEOUT error with scope "operation".
func (o *Orchestrator) WaitForSnapshot(ctx context.Context, snapshotID, instanceID string) (Record, error) {
	return o.wait(ctx, "snapshot", snapshotID, func(ctx context.Context) (Record, error) {
		return o.GetSnapshot(ctx, snapshotID, instanceID)
	}, classifySnapshot)
}

// WaitForInstance polls the instance until its status is running or ready
// (case-insensitive). failed, error and suspended are REMOTE_FAILURE errors.
func (o *Orchestrator) WaitForInstance(ctx context.Context, instanceID string) (Record, error) {
	return o.wait(ctx, "instance", instanceID, func(ctx context.Context) (Record, error) {
		return o.GetInstance(ctx, instanceID)
	}, classifyInstance)
}

func (o *Orchestrator) wait(ctx context.Context, kind, id string, fetch func(context.Context) (Record, error), classify func(Record) poll.Outcome) (Record, error) {
	timeout := o.cfg.OperationTimeout
	logger := o.logger.With(zap.String("resource", kind), zap.String("id", id))
	logger.Debug("waiting", zap.Duration("interval", o.cfg.PollInterval), zap.Duration("timeout", timeout))

	var last Record
	res, err := poll.Until(ctx, poll.Options{
		Interval: o.cfg.PollInterval,
		Timeout:  timeout,
		Clock:    o.clock,
		OnAttempt: func(attempt int, outcome poll.Outcome) {
			if o.observer != nil {
				o.observer.ObservePoll(kind)
			}
			logger.Debug("poll", zap.Int("attempt", attempt), zap.String("status", last.Status()))
			o.progress("%s %s: %s (poll %d)", kind, id, displayStatus(last.Status()), attempt)
		},
	}, func(ctx context.Context) (Record, error) {
		r, err := fetch(ctx)
		if err == nil {
			last = r
		}
		return r, err
	}, classify)

	switch {
	case err == nil:
		logger.Info("ready", zap.String("status", res.Last.Status()), zap.Int("polls", res.Attempts), zap.Duration("elapsed", res.Elapsed))
		return res.Last, nil
	case stderrors.Is(err, poll.ErrFailed):
		return res.Last, errors.RemoteFailure(kind, id, res.Last.Status())
	case stderrors.Is(err, poll.ErrTimeout):
		return res.Last, errors.WaitTimeout(kind, id, timeout, res.Last.Status())
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return res.Last, errors.Canceled("wait for "+kind+" "+id+" cancelled", err)
	default:
		return res.Last, err
	}
}

func displayStatus(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

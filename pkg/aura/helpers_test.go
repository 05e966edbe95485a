package aura

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/events"
	"github.com/davidthor/auractl/pkg/poll"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type reply struct {
	resp map[string]interface{}
	err  error
}

func okReply(resp map[string]interface{}) reply { return reply{resp: resp} }
func errReply(err error) reply { return reply{err: err} }

// fakeRunner answers aura-cli calls from per-command reply queues. The last
// reply of a queue repeats.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	replies map[string][]reply
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: make(map[string][]reply)}
}

func (f *fakeRunner) on(label string, replies ...reply) *fakeRunner {
	f.replies[label] = append(f.replies[label], replies...)
	return f
}

func (f *fakeRunner) Run(ctx context.Context, args []string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]string(nil), args...))
	label := labelOf(args)
	q := f.replies[label]
	if len(q) == 0 {
		return nil, fmt.Errorf("unexpected call: %s", strings.Join(args, " "))
	}
	r := q[0]
	if len(q) > 1 {
		f.replies[label] = q[1:]
	}
	return r.resp, r.err
}

func (f *fakeRunner) count(label string) int {
	n := 0
	for _, c := range f.calls {
		if labelOf(c) == label {
			n++
		}
	}
	return n
}

func (f *fakeRunner) callsTo(label string) [][]string {
	var out [][]string
	for _, c := range f.calls {
		if labelOf(c) == label {
			out = append(out, c)
		}
	}
	return out
}

func labelOf(args []string) string {
	n := 2
	if len(args) > 1 && args[1] == "snapshot" {
		n = 3
	}
	if len(args) < n {
		n = len(args)
	}
	return strings.Join(args[:n], " ")
}

// fakeRecorder keeps a copy of every saved state of every run.
type fakeRecorder struct {
	saves []types.RunRecord
	err   error
}

func (r *fakeRecorder) SaveRun(ctx context.Context, run *types.RunRecord) error {
	cp := *run
	cp.Phases = append([]types.PhaseRecord(nil), run.Phases...)
	r.saves = append(r.saves, cp)
	return r.err
}

func (r *fakeRecorder) last() types.RunRecord {
	return r.saves[len(r.saves)-1]
}

type fakeNotifier struct {
	events []events.Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, e events.Event) error {
	n.events = append(n.events, e)
	return n.err
}

func (n *fakeNotifier) Close() error { return nil }

func (n *fakeNotifier) transitions() []string {
	var out []string
	for _, e := range n.events {
		out = append(out, e.Phase+":"+e.Type)
	}
	return out
}

type fakeObserver struct {
	polls  map[string]int
	phases map[string]int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{polls: map[string]int{}, phases: map[string]int{}}
}

func (o *fakeObserver) ObservePoll(kind string)            { o.polls[kind]++ }
func (o *fakeObserver) ObservePhase(phase, outcome string) { o.phases[phase+":"+outcome]++ }

type harness struct {
	cfg      *config.Config
	runner   *fakeRunner
	clock    *poll.ManualClock
	recorder *fakeRecorder
	notifier *fakeNotifier
	observer *fakeObserver
	progress []string
	orch     *Orchestrator
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := config.New()
	cfg.Instances["dev"] = config.InstanceEntry{InstanceID: "abc123"}
	cfg.Instances["production"] = config.InstanceEntry{
		InstanceID:       "live01",
		SourceInstanceID: "neo4j+s://src0001.databases.neo4j.io",
		RestoreTargetID:  "target01",
	}
	cfg.ResetWorkflow = config.ResetWorkflow{SnapshotID: "blank-1", SourceInstanceID: "tmpl01"}
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		cfg:      cfg,
		runner:   newFakeRunner(),
		clock:    poll.NewManualClock(testStart),
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		observer: newFakeObserver(),
	}
	h.orch = New(cfg, h.runner, Options{
		Clock:      h.clock,
		Recorder:   h.recorder,
		Notifier:   h.notifier,
		Observer:   h.observer,
		OnProgress: func(m string) { h.progress = append(h.progress, m) },
	})
	n := 0
	h.orch.newRunID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	require.NotNil(t, h.orch)
	return h
}

func snap(id, status string) map[string]interface{} {
	return map[string]interface{}{"snapshot_id": id, "status": status}
}

func inst(id, status string) map[string]interface{} {
	return map[string]interface{}{"data": map[string]interface{}{"id": id, "status": status}}
}

// Package aura orchestrates Aura snapshot and restore operations on top of
// aura-cli: snapshot create/list/get, bounded waits, restore, and the
// backup-reset-restore workflow.
package aura

import (
	"context"
	"fmt"
	"time"

	"github.com/davidthor/auractl/pkg/auracli"
	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/events"
	"github.com/davidthor/auractl/pkg/instance"
	"github.com/davidthor/auractl/pkg/poll"
	"github.com/davidthor/auractl/pkg/secrets"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder persists run records. state.Manager satisfies it.
type Recorder interface {
	SaveRun(ctx context.Context, run *types.RunRecord) error
}

// Observer receives poll and phase counts. metrics.Registry satisfies it.
type Observer interface {
	ObservePoll(kind string)
	ObservePhase(phase, outcome string)
}

// ProgressCallback receives human-readable progress while waiting.
type ProgressCallback func(message string)

// Options configures an Orchestrator. Every field is optional.
type Options struct {
	Logger *zap.Logger

	// Clock drives wait loops and record timestamps. Defaults to the real clock.
	Clock poll.Clock

	// Refs resolves references such as env:NAME. Defaults to secrets.DefaultManager.
	Refs *secrets.Manager

	// Recorder stores run records; failures are logged, never returned.
	Recorder Recorder

	// Notifier publishes phase transitions; failures are logged, never returned.
	Notifier events.Notifier

	Observer Observer

	// OnProgress is called on every poll of a wait loop.
	OnProgress ProgressCallback
}

// Orchestrator is a stateless facade over aura-cli. It holds no mutable
// state and is safe for concurrent use.
type Orchestrator struct {
	cfg        *config.Config
	runner     auracli.Runner
	resolver   *instance.Resolver
	refs       *secrets.Manager
	logger     *zap.Logger
	clock      poll.Clock
	recorder   Recorder
	notifier   events.Notifier
	observer   Observer
	onProgress ProgressCallback
	newRunID   func() string
}

// New creates an orchestrator that issues commands through runner.
func New(cfg *config.Config, runner auracli.Runner, opts Options) *Orchestrator {
	if cfg == nil {
		cfg = config.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = poll.RealClock
	}
	if opts.Refs == nil {
		opts.Refs = secrets.DefaultManager()
	}
	if opts.Notifier == nil {
		opts.Notifier = events.Nop{}
	}

	return &Orchestrator{
		cfg:        cfg,
		runner:     runner,
		resolver:   instance.NewResolver(cfg, opts.Refs),
		refs:       opts.Refs,
		logger:     opts.Logger,
		clock:      opts.Clock,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
		observer:   opts.Observer,
		onProgress: opts.OnProgress,
		newRunID:   uuid.NewString,
	}
}

// NewFromConfig locates aura-cli from cfg (and the override in cliOpts) and
// returns an orchestrator backed by the exec Invoker.
func NewFromConfig(cfg *config.Config, cliOpts auracli.Options, opts Options) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if cliOpts.ConfiguredPath == "" {
		cliOpts.ConfiguredPath = cfg.AuraCLIPath
	}
	if cliOpts.ConfigDir == "" {
		cliOpts.ConfigDir = cfg.ConfigDir
	}
	if cliOpts.Timeout <= 0 {
		cliOpts.Timeout = cfg.CommandTimeout
	}
	if cliOpts.Logger == nil {
		cliOpts.Logger = opts.Logger
	}

	invoker, err := auracli.New(cliOpts)
	if err != nil {
		return nil, err
	}
	return New(cfg, invoker, opts), nil
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

// Resolve resolves environment (and an optional instance override) to
// concrete instance ids.
func (o *Orchestrator) Resolve(ctx context.Context, environment, override string) (*instance.Resolved, error) {
	return o.resolver.Resolve(ctx, environment, override)
}

func (o *Orchestrator) run(ctx context.Context, args ...string) (Record, error) {
	resp, err := o.runner.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	return Record(resp), nil
}

func (o *Orchestrator) now() time.Time {
	return o.clock.Now().UTC()
}

func (o *Orchestrator) progress(format string, args ...interface{}) {
	if o.onProgress != nil {
		o.onProgress(fmt.Sprintf(format, args...))
	}
}

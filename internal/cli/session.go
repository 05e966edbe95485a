package cli

import (
	"github.com/davidthor/auractl/pkg/aura"
	"github.com/davidthor/auractl/pkg/auracli"
	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/events"
	"github.com/davidthor/auractl/pkg/metrics"
	"github.com/davidthor/auractl/pkg/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session wires one command invocation: configuration, logger, metrics,
// optional run records and event notifier, and the orchestrator.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Registry
	records  state.Manager
	notifier events.Notifier
	progress *progressReporter
	orch     *aura.Orchestrator

	metricsFile string
}

type sessionOptions struct {
	// environment selects the dotenv files consulted for env: references.
	environment string

	// records opens the run record store. Failing to open it is logged and
	// recording is skipped.
	records bool

	// events connects the NATS notifier when one is configured.
	events bool
}

func openSession(cmd *cobra.Command, g *globalFlags, opts sessionOptions) (*session, error) {
	logger, err := newLogger(g.logLevel, g.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	cfg, file, err := loadConfig(g.configFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", zap.String("file", file), zap.Strings("environments", cfg.EnvironmentNames()))

	s := &session{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics.New(),
		notifier:    events.Nop{},
		progress:    newProgressReporter(cmd.ErrOrStderr(), g.quiet),
		metricsFile: g.metricsFile,
	}

	var recorder aura.Recorder
	if opts.records {
		mgr, err := createRecordManager(cfg.Records, g.recordsBackend, g.recordsConfig)
		if err != nil {
			logger.Warn("run records disabled", zap.Error(err))
		} else {
			s.records = mgr
			recorder = mgr
		}
	}

	if opts.events && cfg.Events.NATSURL != "" {
		n, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger.Named("events"))
		if err != nil {
			logger.Warn("event notifications disabled", zap.Error(err))
		} else {
			s.notifier = n
		}
	}

	orch, err := aura.NewFromConfig(cfg, auracli.Options{
		Override: g.auraCLI,
		Observer: s.metrics,
	}, aura.Options{
		Logger:     logger,
		Refs:       newReferenceManager(cfg, opts.environment, logger),
		Recorder:   recorder,
		Notifier:   s.notifier,
		Observer:   s.metrics,
		OnProgress: s.progress.Update,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.orch = orch

	return s, nil
}

// Close stops progress output and releases everything the session opened.
// Errors are logged; the command's own result takes precedence.
func (s *session) Close() {
	s.progress.Stop()

	if err := s.notifier.Close(); err != nil {
		s.logger.Warn("failed to close event notifier", zap.Error(err))
	}
	if s.records != nil {
		if err := s.records.Close(); err != nil {
			s.logger.Warn("failed to close run records", zap.Error(err))
		}
	}
	if s.metricsFile != "" {
		if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
			s.logger.Warn("failed to write metrics", zap.String("path", s.metricsFile), zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

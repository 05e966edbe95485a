// Package auracli runs the aura-cli control-plane tool as a subprocess and
// decodes its JSON output.
package auracli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/davidthor/auractl/pkg/errors"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single invocation when no timeout is configured.
const DefaultTimeout = 600 * time.Second

// Runner executes one aura-cli command and returns its decoded JSON object.
// The exec-backed Invoker is the production implementation; tests substitute
// in-memory fakes.
type Runner interface {
	Run(ctx context.Context, args []string) (map[string]interface{}, error)
}

// Observer receives the outcome of every invocation.
type Observer interface {
	ObserveCommand(command, outcome string, duration time.Duration)
}

// Invocation outcomes reported to the Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"
	OutcomeParse    = "parse_error"
	OutcomeCanceled = "canceled"
)

// Options configures executable lookup and invocation.
type Options struct {
	// Override is an explicit executable path; it wins over everything else.
	Override string

	// ConfiguredPath is the aura_cli_path setting. Relative values are tried
	// against ConfigDir, then the working directory, then PATH.
	ConfiguredPath string
	ConfigDir      string

	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger   *zap.Logger
	Observer Observer
}

// Invoker runs aura-cli. The executable path is resolved once by New and is
// immutable afterwards, so an Invoker is safe to share between goroutines.
type Invoker struct {
	path     string
	timeout  time.Duration
	logger   *zap.Logger
	observer Observer
}

// New locates the executable and returns an Invoker. It fails when no
// candidate location resolves.
func New(opts Options) (*Invoker, error) {
	path, err := Locate(opts)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Invoker{
		path:     path,
		timeout:  timeout,
		logger:   logger.Named("aura-cli"),
		observer: opts.Observer,
	}, nil
}

// Path returns the resolved executable path.
func (i *Invoker) Path() string {
	return i.path
}

// Run executes aura-cli with args and the configured timeout.
func (i *Invoker) Run(ctx context.Context, args []string) (map[string]interface{}, error) {
	return i.RunWithTimeout(ctx, args, 0)
}

// RunWithTimeout executes aura-cli with args, appending "--output json". A
// non-positive timeout uses the configured one. A top-level JSON array is
// returned as {"data": [...]}.
func (i *Invoker) RunWithTimeout(ctx context.Context, args []string, timeout time.Duration) (map[string]interface{}, error) {
	if timeout <= 0 {
		timeout = i.timeout
	}

	full := make([]string, 0, len(args)+2)
	full = append(full, args...)
	full = append(full, "--output", "json")
	cmdLine := commandLine(i.path, full)
	label := commandLabel(args)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, i.path, full...)
	cmd.Env = os.Environ()
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	log := i.logger.With(zap.String("command", cmdLine), zap.Duration("duration", elapsed))

	if err != nil {
		if ctx.Err() != nil {
			i.observe(label, OutcomeCanceled, elapsed)
			log.Debug("invocation cancelled", zap.Error(ctx.Err()))
			return nil, errors.Canceled(fmt.Sprintf("command %q cancelled", cmdLine), ctx.Err()).
				WithDetails(map[string]interface{}{
					"command": cmdLine,
					"stdout":  stdout.String(),
					"stderr":  stderr.String(),
				})
		}
		if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
			i.observe(label, OutcomeTimeout, elapsed)
			log.Warn("invocation timed out", zap.Duration("timeout", timeout))
			return nil, errors.CommandTimeout(cmdLine, timeout, stdout.String(), stderr.String())
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		i.observe(label, OutcomeFailure, elapsed)
		log.Debug("invocation failed", zap.Int("exit_code", exitCode), zap.String("stderr", stderr.String()))
		return nil, errors.CommandFailed(cmdLine, exitCode, stdout.String(), stderr.String(), err)
	}

	v, err := ExtractJSON(stdout.Bytes())
	if err != nil {
		i.observe(label, OutcomeParse, elapsed)
		log.Debug("invocation output is not JSON", zap.Error(err))
		return nil, errors.ParseError(cmdLine, stdout.String(), err).WithDetail("stderr", stderr.String())
	}

	i.observe(label, OutcomeSuccess, elapsed)
	log.Debug("invocation succeeded")

	switch doc := v.(type) {
	case map[string]interface{}:
		return doc, nil
	default:
		return map[string]interface{}{"data": doc}, nil
	}
}

func (i *Invoker) observe(label, outcome string, d time.Duration) {
	if i.observer != nil {
		i.observer.ObserveCommand(label, outcome, d)
	}
}

func commandLine(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, path)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// commandLabel names the subcommand without ids, e.g. "instance snapshot get".
func commandLabel(args []string) string {
	var words []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			break
		}
		words = append(words, a)
		if len(words) == 3 || (len(words) == 2 && words[1] != "snapshot") {
			break
		}
	}
	if len(words) == 0 {
		return "unknown"
	}
	return strings.Join(words, " ")
}

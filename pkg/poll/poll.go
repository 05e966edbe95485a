// Package poll implements a bounded polling loop that drives a remotely
// controlled resource to a terminal state.
package poll

import (
	"context"
	"errors"
	"time"
)

// Outcome classifies one observation of the polled resource.
type Outcome int

const (
	// Pending means the resource has not reached a terminal state.
	Pending Outcome = iota
	// Succeeded is a terminal success state.
	Succeeded
	// Failed is a terminal failure state. Waiting longer will not change it.
	Failed
)

var (
	// ErrTimeout is returned when the deadline passes before a terminal state.
	ErrTimeout = errors.New("poll: deadline exceeded before terminal state")

	// ErrFailed is returned when the resource reports a terminal failure.
	ErrFailed = errors.New("poll: resource reached a failure state")
)

// Clock abstracts time so loops can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock uses the wall clock.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options bounds a polling loop.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock

	// OnAttempt, when set, is called after every observation.
	OnAttempt func(attempt int, outcome Outcome)
}

// Result describes how a loop ended.
type Result[T any] struct {
	// Last is the final observed value (zero if the first fetch failed).
	Last     T
	Attempts int
	Elapsed  time.Duration
}

// Until calls fetch until classify reports a terminal outcome or the deadline
// passes. A fetch error ends the loop immediately and is returned unchanged.
//
// On terminal success the value is returned with a nil error and no further
// fetch happens. On terminal failure the error wraps ErrFailed. When the clock
// reaches the deadline after a non-terminal observation the error wraps
// ErrTimeout; the deadline is never reported before it has passed.
func Until[T any](ctx context.Context, opts Options, fetch func(context.Context) (T, error), classify func(T) Outcome) (Result[T], error) {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock
	}

	start := clock.Now()
	deadline := start.Add(opts.Timeout)
	var res Result[T]

	for {
		v, err := fetch(ctx)
		res.Elapsed = clock.Now().Sub(start)
		if err != nil {
			return res, err
		}
		res.Attempts++
		res.Last = v

		outcome := classify(v)
		if opts.OnAttempt != nil {
			opts.OnAttempt(res.Attempts, outcome)
		}

		switch outcome {
		case Succeeded:
			return res, nil
		case Failed:
			return res, ErrFailed
		}

		now := clock.Now()
		if !now.Before(deadline) {
			return res, ErrTimeout
		}

		wait := opts.Interval
		if remaining := deadline.Sub(now); wait <= 0 || wait > remaining {
			wait = remaining
		}
		if err := clock.Sleep(ctx, wait); err != nil {
			return res, err
		}
	}
}

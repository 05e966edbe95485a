// Package events publishes workflow phase transitions.
package events

import (
	"context"
	"time"
)

// Phase transitions.
const (
	TypeStarted   = "started"
	TypeSucceeded = "succeeded"
	TypeFailed    = "failed"
)

// Event is one phase transition of a recorded run.
type Event struct {
	Type             string    `json:"type"`
	RunID            string    `json:"run_id,omitempty"`
	Workflow         string    `json:"workflow"`
	Phase            string    `json:"phase"`
	Environment      string    `json:"environment,omitempty"`
	TargetInstanceID string    `json:"target_instance_id,omitempty"`
	SourceInstanceID string    `json:"source_instance_id,omitempty"`
	SnapshotID       string    `json:"snapshot_id,omitempty"`
	Error            string    `json:"error,omitempty"`
	Time             time.Time `json:"time"`
}

// Notifier delivers events. Callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }

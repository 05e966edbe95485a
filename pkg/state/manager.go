// Package state persists run records for auractl.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/davidthor/auractl/pkg/state/backend"
	"github.com/davidthor/auractl/pkg/state/types"
)

const (
	runsPrefix = "runs/"
	runSuffix  = ".run.json"
)

// Manager provides high-level run record operations.
type Manager interface {
	GetRun(ctx context.Context, id string) (*types.RunRecord, error)
	SaveRun(ctx context.Context, run *types.RunRecord) error
	DeleteRun(ctx context.Context, id string) error

	// ListRuns returns matching runs, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]types.RunRef, error)

	Backend() backend.Backend

	// Close releases backends that hold resources (badger, gcs).
	Close() error
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Environment string
	Workflow    types.Workflow
	Status      types.RunStatus
	Limit       int
}

func (f RunFilter) matches(r *types.RunRecord) bool {
	if f.Environment != "" && !strings.EqualFold(f.Environment, r.Environment) {
		return false
	}
	if f.Workflow != "" && f.Workflow != r.Workflow {
		return false
	}
	if f.Status != "" && f.Status != r.Status {
		return false
	}
	return true
}

type manager struct {
	backend backend.Backend
}

// NewManager creates a new record manager with the given backend.
func NewManager(b backend.Backend) Manager {
	return &manager{backend: b}
}

// NewManagerFromConfig creates a new record manager from backend configuration.
func NewManagerFromConfig(config backend.Config) (Manager, error) {
	b, err := backend.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	return NewManager(b), nil
}

func (m *manager) Backend() backend.Backend {
	return m.backend
}

func (m *manager) Close() error {
	if c, ok := m.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *manager) GetRun(ctx context.Context, id string) (*types.RunRecord, error) {
	if err := validateRunID(id); err != nil {
		return nil, err
	}
	return readJSON[types.RunRecord](ctx, m.backend, runPath(id))
}

func (m *manager) SaveRun(ctx context.Context, run *types.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record must have an id")
	}
	if err := validateRunID(run.ID); err != nil {
		return err
	}
	return writeJSON(ctx, m.backend, runPath(run.ID), run)
}

func (m *manager) DeleteRun(ctx context.Context, id string) error {
	if err := validateRunID(id); err != nil {
		return err
	}
	return m.backend.Delete(ctx, runPath(id))
}

func (m *manager) ListRuns(ctx context.Context, filter RunFilter) ([]types.RunRef, error) {
	paths, err := m.backend.List(ctx, runsPrefix)
	if err != nil {
		return nil, err
	}

	var refs []types.RunRef
	for _, p := range paths {
		id, ok := runID(p)
		if !ok {
			continue
		}
		run, err := m.GetRun(ctx, id)
		if err != nil {
			continue // Skip records that can't be read
		}
		if filter.matches(run) {
			refs = append(refs, run.Ref())
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].StartedAt.After(refs[j].StartedAt)
	})
	if filter.Limit > 0 && len(refs) > filter.Limit {
		refs = refs[:filter.Limit]
	}
	return refs, nil
}

// Path helpers

// validateRunID rejects ids that would address anything but a single object
// directly under runs/.
func validateRunID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("run id is required")
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("invalid run id %q", id)
	}
	return nil
}

func runPath(id string) string {
	return path.Join("runs", id+runSuffix)
}

func runID(p string) (string, bool) {
	base := path.Base(p)
	if !strings.HasSuffix(base, runSuffix) {
		return "", false
	}
	return strings.TrimSuffix(base, runSuffix), true
}

// JSON helpers

func readJSON[T any](ctx context.Context, b backend.Backend, p string) (*T, error) {
	reader, err := b.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var result T
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return &result, nil
}

func writeJSON(ctx context.Context, b backend.Backend, p string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return b.Write(ctx, p, bytes.NewReader(content))
}

// Package backend defines the storage interface for run records and the
// registry of backend implementations.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrNotFound is returned by Read when no object exists at the path.
var ErrNotFound = errors.New("record not found")

// Backend stores opaque objects addressed by slash-separated paths.
type Backend interface {
	// Type returns the registered backend name.
	Type() string

	Read(ctx context.Context, path string) (io.ReadCloser, error)
	Write(ctx context.Context, path string, data io.Reader) error

	// Delete is idempotent: deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// List returns every object path under prefix, relative to the backend root.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend.
type Config struct {
	Type   string            `json:"type"`
	Config map[string]string `json:"config,omitempty"`
}

// Factory creates a backend from its configuration map.
type Factory func(config map[string]string) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under name. Backends register
// themselves from init().
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Create instantiates the backend named by config.Type.
func Create(config Config) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[config.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown record backend %q (available: %v)", config.Type, Available())
	}

	cfg := config.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	return factory(cfg)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

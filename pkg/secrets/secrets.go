// Package secrets resolves indirect references in configuration values.
//
// A reference has the form "<provider>:<key>", for example "env:AURA_PROD_ID"
// or "awssm:prod/aura#instance_id". Values whose prefix does not name a
// registered provider (plain ids, connection URIs) pass through unchanged.
package secrets

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/davidthor/auractl/pkg/errors"
)

// Provider looks up the value behind a reference key.
type Provider interface {
	// Name is the reference prefix handled by the provider (e.g. "env").
	Name() string

	// Get returns the value for key. A missing value is an error.
	Get(ctx context.Context, key string) (string, error)
}

// Manager dispatches references to registered providers.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewManager creates a manager with no providers.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]Provider),
	}
}

// DefaultManager creates a manager with the env and awssm providers registered.
// The AWS client is only built when an awssm reference is first resolved.
func DefaultManager() *Manager {
	m := NewManager()
	m.RegisterProvider(NewEnvProvider())
	m.RegisterProvider(NewSecretsManagerProvider(nil))
	return m
}

// RegisterProvider adds or replaces the provider for p.Name().
func (m *Manager) RegisterProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name()] = p
}

// Providers returns the registered provider names, sorted.
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsReference reports whether value is addressed to a registered provider.
func (m *Manager) IsReference(value string) bool {
	_, _, ok := m.split(value)
	return ok
}

// Resolve returns the value behind a reference, or value itself when it is
// not a reference.
func (m *Manager) Resolve(ctx context.Context, value string) (string, error) {
	p, key, ok := m.split(value)
	if !ok {
		return value, nil
	}
	if key == "" {
		return "", errors.ConfigError(fmt.Sprintf("empty %s reference", p.Name()), map[string]interface{}{
			"reference": value,
		})
	}
	return p.Get(ctx, key)
}

func (m *Manager) split(value string) (Provider, string, bool) {
	prefix, key, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found {
		return nil, "", false
	}
	m.mu.RLock()
	p, ok := m.providers[strings.ToLower(prefix)]
	m.mu.RUnlock()
	if !ok {
		return nil, "", false
	}
	return p, strings.TrimSpace(key), true
}

// EnvProvider resolves references against the process environment at call time.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider reading os.LookupEnv.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// NewEnvProviderWithDefaults creates a provider that falls back to defaults
// (typically loaded from dotenv files) for variables the process environment
// does not set.
func NewEnvProviderWithDefaults(defaults map[string]string) *EnvProvider {
	return &EnvProvider{lookup: func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := defaults[key]
		return value, ok
	}}
}

func (p *EnvProvider) Name() string {
	return "env"
}

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	value, ok := p.lookup(key)
	if !ok {
		return "", errors.ConfigError(fmt.Sprintf("environment variable %s is not set", key), map[string]interface{}{
			"variable":  key,
			"reference": "env:" + key,
		})
	}
	return value, nil
}

// Package instance maps logical environment names to concrete Aura instance ids.
package instance

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/errors"
	"github.com/davidthor/auractl/pkg/secrets"
)

// Resolved holds the instance ids for one environment after reference
// resolution and URI normalization. None of the ids is ever empty.
type Resolved struct {
	Environment      string `json:"environment"`
	InstanceID       string `json:"instance_id"`
	SourceInstanceID string `json:"source_instance_id"`
	RestoreTargetID  string `json:"restore_target_id"`
}

// environmentAliases pairs common long and short environment names. A lookup
// that misses on the requested key retries with its alias.
var environmentAliases = map[string]string{
	"prod":        "production",
	"production":  "prod",
	"dev":         "development",
	"development": "dev",
	"stage":       "staging",
	"staging":     "stage",
	"test":        "testing",
	"testing":     "test",
}

// Resolver resolves environments against a configuration.
type Resolver struct {
	cfg  *config.Config
	refs *secrets.Manager
}

// NewResolver creates a resolver. A nil refs manager uses secrets.DefaultManager.
func NewResolver(cfg *config.Config, refs *secrets.Manager) *Resolver {
	if refs == nil {
		refs = secrets.DefaultManager()
	}
	return &Resolver{cfg: cfg, refs: refs}
}

// Environment returns the effective environment name: the argument, else the
// configured default, else "prod". The result is lowercased.
func (r *Resolver) Environment(environment string) string {
	env := strings.ToLower(strings.TrimSpace(environment))
	if env == "" && r.cfg != nil {
		env = r.cfg.Environment
	}
	if env == "" {
		env = config.DefaultEnvironment
	}
	return env
}

// LookupKeys returns the keys tried, in order, when looking up environment.
func LookupKeys(environment string) []string {
	key := strings.ToLower(strings.TrimSpace(environment))
	keys := []string{key}
	if alias, ok := environmentAliases[key]; ok {
		keys = append(keys, alias)
	}
	return keys
}

// Resolve returns the instance ids for environment. A non-empty override
// bypasses the configured mapping and is used for all three roles.
func (r *Resolver) Resolve(ctx context.Context, environment, override string) (*Resolved, error) {
	env := r.Environment(environment)

	if strings.TrimSpace(override) != "" {
		id, err := r.ResolveValue(ctx, "instance override", override)
		if err != nil {
			return nil, err
		}
		return &Resolved{
			Environment:      env,
			InstanceID:       id,
			SourceInstanceID: id,
			RestoreTargetID:  id,
		}, nil
	}

	keys := LookupKeys(env)
	var (
		entry config.InstanceEntry
		found bool
	)
	if r.cfg != nil {
		for _, key := range keys {
			if entry, found = r.cfg.Instances[key]; found {
				break
			}
		}
	}
	if !found {
		return nil, errors.ConfigError(
			fmt.Sprintf("no instance configured for environment %q", env),
			map[string]interface{}{
				"environment": env,
				"tried_keys":  keys,
			},
		)
	}

	instanceID, err := r.ResolveValue(ctx, env+".instance_id", entry.InstanceID)
	if err != nil {
		return nil, err
	}

	source := entry.SourceInstanceID
	if strings.TrimSpace(source) == "" {
		source = entry.InstanceID
	}
	sourceID, err := r.ResolveValue(ctx, env+".source_instance_id", source)
	if err != nil {
		return nil, err
	}

	target := entry.RestoreTargetID
	if strings.TrimSpace(target) == "" {
		target = entry.InstanceID
	}
	targetID, err := r.ResolveValue(ctx, env+".restore_target_id", target)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Environment:      env,
		InstanceID:       instanceID,
		SourceInstanceID: sourceID,
		RestoreTargetID:  targetID,
	}, nil
}

// ResolveValue applies reference resolution and URI normalization to one
// identifier-shaped value. field names the value in errors. An empty result is
// a configuration error.
func (r *Resolver) ResolveValue(ctx context.Context, field, value string) (string, error) {
	resolved, err := r.refs.Resolve(ctx, value)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.WithDetail("field", field)
		}
		return "", err
	}

	id := NormalizeID(resolved)
	if id == "" {
		return "", errors.ConfigError(
			fmt.Sprintf("%s resolved to an empty instance id", field),
			map[string]interface{}{
				"field": field,
				"value": value,
			},
		)
	}
	return id, nil
}

// ResolveOptional is ResolveValue for values that may legitimately be absent:
// an empty input yields "" without error.
func (r *Resolver) ResolveOptional(ctx context.Context, field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return r.ResolveValue(ctx, field, value)
}

// Package config defines the auractl configuration model and loads it from
// the neo4j.backup section of a YAML document.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/davidthor/auractl/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Defaults applied when a duration setting is absent or zero.
const (
	DefaultPollInterval     = 30 * time.Second
	DefaultCommandTimeout   = 600 * time.Second
	DefaultOperationTimeout = 3600 * time.Second

	// DefaultEnvironment is used when neither the caller nor the configuration
	// names an environment.
	DefaultEnvironment = "prod"

	// DefaultEventSubject is the NATS subject for workflow events.
	DefaultEventSubject = "auractl.events"
)

// Section is the configuration key holding everything auractl reads.
const Section = "neo4j.backup"

// InstanceEntry maps one environment to its instance ids. Each field may be a
// plain id, a connection URI, or a reference such as "env:NAME"; resolution
// happens at use time.
type InstanceEntry struct {
	InstanceID       string `json:"instance_id" yaml:"instance_id"`
	SourceInstanceID string `json:"source_instance_id,omitempty" yaml:"source_instance_id,omitempty"`
	RestoreTargetID  string `json:"restore_target_id,omitempty" yaml:"restore_target_id,omitempty"`
}

// ResetWorkflow holds the default blank snapshot used by backup-reset-restore.
type ResetWorkflow struct {
	SnapshotID       string `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	SourceInstanceID string `json:"source_instance_id,omitempty" yaml:"source_instance_id,omitempty"`
}

// RecordsConfig selects the backend that stores run records.
type RecordsConfig struct {
	Backend string            `json:"backend,omitempty" yaml:"backend,omitempty"`
	Config  map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// EventsConfig enables NATS workflow notifications when NATSURL is set.
type EventsConfig struct {
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Config is the read-only configuration of the orchestrator.
type Config struct {
	Environment      string                   `json:"environment,omitempty" yaml:"environment,omitempty"`
	Instances        map[string]InstanceEntry `json:"instances" yaml:"instances"`
	ResetWorkflow    ResetWorkflow            `json:"reset_workflow" yaml:"reset_workflow"`
	PollInterval     time.Duration            `json:"poll_interval" yaml:"poll_interval"`
	CommandTimeout   time.Duration            `json:"command_timeout" yaml:"command_timeout"`
	OperationTimeout time.Duration            `json:"operation_timeout" yaml:"operation_timeout"`
	AuraCLIPath      string                   `json:"aura_cli_path,omitempty" yaml:"aura_cli_path,omitempty"`
	Records          RecordsConfig            `json:"records" yaml:"records"`
	Events           EventsConfig             `json:"events" yaml:"events"`

	// ConfigDir is the directory of the file the configuration was read from.
	// Relative executable paths are resolved against it first.
	ConfigDir string `json:"-" yaml:"-"`
}

// New returns a configuration with defaults and no instances.
func New() *Config {
	return &Config{
		Instances:        make(map[string]InstanceEntry),
		PollInterval:     DefaultPollInterval,
		CommandTimeout:   DefaultCommandTimeout,
		OperationTimeout: DefaultOperationTimeout,
		Events:           EventsConfig{Subject: DefaultEventSubject},
	}
}

// EnvironmentNames returns the configured environment keys, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Instances))
	for name := range c.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("failed to read %s", path), err)
	}
	return FromViper(v)
}

// FromViper decodes the neo4j.backup section of v. Keys read individually so
// AURACTL_* environment overrides bound on v apply.
func FromViper(v *viper.Viper) (*Config, error) {
	section := map[string]interface{}{
		"environment":               v.Get(Section + ".environment"),
		"instances":                 v.Get(Section + ".instances"),
		"reset_workflow":            v.Get(Section + ".reset_workflow"),
		"poll_interval_seconds":     v.Get(Section + ".poll_interval_seconds"),
		"command_timeout_seconds":   v.Get(Section + ".command_timeout_seconds"),
		"operation_timeout_seconds": v.Get(Section + ".operation_timeout_seconds"),
		"aura_cli_path":             v.Get(Section + ".aura_cli_path"),
		"records":                   v.Get(Section + ".records"),
		"events":                    v.Get(Section + ".events"),
	}

	cfg, err := FromMap(section)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			used = abs
		}
		cfg.ConfigDir = filepath.Dir(used)
	}
	return cfg, nil
}

// FromMap decodes an already-parsed neo4j.backup section. Absent keys keep
// their defaults.
func FromMap(section map[string]interface{}) (*Config, error) {
	cfg := New()

	cfg.Environment = strings.ToLower(strings.TrimSpace(cast.ToString(section["environment"])))
	cfg.AuraCLIPath = strings.TrimSpace(cast.ToString(section["aura_cli_path"]))

	if raw := section["instances"]; raw != nil {
		instances, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "instances must be a mapping", err)
		}
		for key, value := range instances {
			entry, err := parseEntry(key, value)
			if err != nil {
				return nil, err
			}
			cfg.Instances[strings.ToLower(strings.TrimSpace(key))] = entry
		}
	}

	if raw := section["reset_workflow"]; raw != nil {
		rw, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "reset_workflow must be a mapping", err)
		}
		cfg.ResetWorkflow = ResetWorkflow{
			SnapshotID:       strings.TrimSpace(cast.ToString(rw["snapshot_id"])),
			SourceInstanceID: strings.TrimSpace(cast.ToString(rw["source_instance_id"])),
		}
	}

	var err error
	if cfg.PollInterval, err = seconds(section, "poll_interval_seconds", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.CommandTimeout, err = seconds(section, "command_timeout_seconds", DefaultCommandTimeout); err != nil {
		return nil, err
	}
	if cfg.OperationTimeout, err = seconds(section, "operation_timeout_seconds", DefaultOperationTimeout); err != nil {
		return nil, err
	}

	if raw := section["records"]; raw != nil {
		rec, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "records must be a mapping", err)
		}
		cfg.Records.Backend = cast.ToString(rec["backend"])
		if rc := rec["config"]; rc != nil {
			cfg.Records.Config = cast.ToStringMapString(rc)
		}
	}

	if raw := section["events"]; raw != nil {
		ev, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "events must be a mapping", err)
		}
		cfg.Events.NATSURL = cast.ToString(ev["nats_url"])
		if subject := cast.ToString(ev["subject"]); subject != "" {
			cfg.Events.Subject = subject
		}
	}

	return cfg, nil
}

// parseEntry accepts either a bare string or a record with independently
// settable ids. Absent source/target ids stay empty here; the resolver
// defaults them to the instance id.
func parseEntry(key string, value interface{}) (InstanceEntry, error) {
	switch v := value.(type) {
	case string:
		return InstanceEntry{InstanceID: strings.TrimSpace(v)}, nil
	case nil:
		return InstanceEntry{}, nil
	}

	record, err := cast.ToStringMapE(value)
	if err != nil {
		return InstanceEntry{}, errors.ConfigError(
			fmt.Sprintf("instance entry %q must be a string or a mapping", key),
			map[string]interface{}{"environment": key},
		)
	}
	return InstanceEntry{
		InstanceID:       strings.TrimSpace(cast.ToString(record["instance_id"])),
		SourceInstanceID: strings.TrimSpace(cast.ToString(record["source_instance_id"])),
		RestoreTargetID:  strings.TrimSpace(cast.ToString(record["restore_target_id"])),
	}, nil
}

func seconds(section map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	raw, ok := section[key]
	if !ok || raw == nil || raw == "" {
		return def, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("%s must be an integer", key), err)
	}
	if n < 0 {
		return 0, errors.ConfigError(fmt.Sprintf("%s must not be negative", key), map[string]interface{}{key: n})
	}
	if n == 0 {
		return def, nil
	}
	return time.Duration(n) * time.Second, nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// AURACTL_NEO4J_BACKUP_ENVIRONMENT=staging.
	EnvPrefix = "AURACTL"

	// EnvConfigFile selects the config file when --config is not given.
	EnvConfigFile = "AURACTL_CONFIG"
)

// loadViper reads the config file and binds AURACTL_* environment overrides.
//
// Config file precedence (highest to lowest):
//  1. --config flag
//  2. AURACTL_CONFIG environment variable
//  3. ./auractl.yaml (or .yml)
//  4. $HOME/.auractl/config.yaml
//
// No config file at all is not an error: auractl then relies on overrides.
func loadViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := configFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("failed to read config file %s", path), err)
	}
	return v, nil
}

func findConfigFile() string {
	candidates := []string{"auractl.yaml", "auractl.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".auractl", "config.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// loadConfig returns the effective configuration and the file it came from.
func loadConfig(configFile string) (*config.Config, string, error) {
	v, err := loadViper(configFile)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI configuration",
		Long:  `Show the effective neo4j.backup configuration and where it was loaded from.`,
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd(g))

	return cmd
}

// configView is the printable form of config.Config: durations in seconds and
// credential-like record backend settings masked.
type configView struct {
	ConfigFile              string                          `json:"config_file,omitempty"`
	Environment             string                          `json:"environment,omitempty"`
	Instances               map[string]config.InstanceEntry `json:"instances"`
	ResetWorkflow           config.ResetWorkflow            `json:"reset_workflow"`
	PollIntervalSeconds     int64                           `json:"poll_interval_seconds"`
	CommandTimeoutSeconds   int64                           `json:"command_timeout_seconds"`
	OperationTimeoutSeconds int64                           `json:"operation_timeout_seconds"`
	AuraCLIPath             string                          `json:"aura_cli_path,omitempty"`
	Records                 config.RecordsConfig            `json:"records"`
	Events                  config.EventsConfig             `json:"events"`
}

func newConfigView(cfg *config.Config, file string) configView {
	records := config.RecordsConfig{Backend: cfg.Records.Backend}
	if len(cfg.Records.Config) > 0 {
		records.Config = make(map[string]string, len(cfg.Records.Config))
		for k, v := range cfg.Records.Config {
			records.Config[k] = maskSetting(k, v)
		}
	}

	return configView{
		ConfigFile:              file,
		Environment:             cfg.Environment,
		Instances:               cfg.Instances,
		ResetWorkflow:           cfg.ResetWorkflow,
		PollIntervalSeconds:     int64(cfg.PollInterval / time.Second),
		CommandTimeoutSeconds:   int64(cfg.CommandTimeout / time.Second),
		OperationTimeoutSeconds: int64(cfg.OperationTimeout / time.Second),
		AuraCLIPath:             cfg.AuraCLIPath,
		Records:                 records,
		Events:                  cfg.Events,
	}
}

func maskSetting(key, value string) string {
	k := strings.ToLower(key)
	for _, marker := range []string{"key", "secret", "token", "password", "connection_string", "credentials_json"} {
		if strings.Contains(k, marker) && value != "" {
			return "********"
		}
	}
	return value
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective neo4j.backup configuration after defaults and
AURACTL_* environment overrides are applied. Values are shown unresolved:
env: references are printed as written.

Examples:
  auractl config show
  auractl config show -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			cfg, file, err := loadConfig(g.configFile)
			if err != nil {
				return err
			}
			view := newConfigView(cfg, file)
			return writeOutput(cmd.OutOrStdout(), outputFormat, view, configTable(view))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputYAML, "Output format: json, yaml, table")

	return cmd
}

func newConfigPathCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(g.configFile)
			if err != nil {
				return err
			}
			if used := v.ConfigFileUsed(); used != "" {
				fmt.Fprintln(cmd.OutOrStdout(), used)
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "No config file found.")
			return nil
		},
	}

	return cmd
}

// Package cli implements the auractl CLI commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Import record backends to register them via init()
	_ "github.com/davidthor/auractl/pkg/state/backend/azurerm"
	_ "github.com/davidthor/auractl/pkg/state/backend/badger"
	_ "github.com/davidthor/auractl/pkg/state/backend/gcs"
	_ "github.com/davidthor/auractl/pkg/state/backend/local"
	_ "github.com/davidthor/auractl/pkg/state/backend/s3"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configFile     string
	auraCLI        string
	logLevel       string
	logFormat      string
	metricsFile    string
	quiet          bool
	recordsBackend string
	recordsConfig  []string
}

// rootCmd represents the base command
var rootCmd = newRootCmd()

// Execute runs the root command. Interrupts cancel the running command,
// which stops any aura-cli subprocess and poll sleep.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "auractl",
		Short: "Snapshot and restore managed graph database instances",
		Long: `auractl drives aura-cli to snapshot, list, and restore managed graph
database instances.

Instances are addressed by environment (prod, staging, dev, ...) through the
neo4j.backup.instances mapping in the configuration file. The reset command
runs the backup -> reset-to-blank -> restore workflow and records every phase
so a failed run can be resumed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default is ./auractl.yaml or $HOME/.auractl/config.yaml)")
	pf.StringVar(&g.auraCLI, "aura-cli", "", "Path to the aura-cli executable")
	pf.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "console", "Log format: console, json")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Suppress progress output")
	pf.StringVar(&g.recordsBackend, "records-backend", "", "Run record backend type (local, s3, gcs, azurerm, badger)")
	pf.StringArrayVar(&g.recordsConfig, "records-config", nil, "Run record backend configuration (key=value)")

	// Add subcommands
	cmd.AddCommand(newSnapshotCmd(g))
	cmd.AddCommand(newInstanceCmd(g))
	cmd.AddCommand(newRestoreCmd(g))
	cmd.AddCommand(newResetCmd(g))
	cmd.AddCommand(newRunsCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

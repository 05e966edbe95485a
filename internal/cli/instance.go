package cli

import (
	"github.com/davidthor/auractl/pkg/instance"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newInstanceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instance",
		Aliases: []string{"inst"},
		Short:   "Inspect configured instances",
		Long:    `Commands for resolving environments to instance ids and checking instance status.`,
	}

	cmd.AddCommand(newInstanceStatusCmd(g))
	cmd.AddCommand(newInstanceResolveCmd(g))

	return cmd
}

func newInstanceStatusCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		wait         bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of an instance",
		Long: `Show the instance record reported by aura-cli. With --wait, poll until
the instance is running or ready.

Examples:
  auractl instance status -e staging
  auractl instance status --instance abc123 --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			s, err := openSession(cmd, g, sessionOptions{environment: environment})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			resolved, err := s.orch.Resolve(ctx, environment, instanceID)
			if err != nil {
				return err
			}

			get := s.orch.GetInstance
			if wait {
				get = s.orch.WaitForInstance
			}
			inst, err := get(ctx, resolved.InstanceID)
			if err != nil {
				return err
			}
			s.progress.Stop()
			return writeOutput(cmd.OutOrStdout(), outputFormat, inst, recordTable(inst))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the instance is running or ready")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newInstanceResolveCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the instance ids an environment resolves to",
		Long: `Resolve an environment (or an --instance override) to its instance,
source, and restore target ids, following env: references, aliases, and
connection URIs. aura-cli is not invoked.

Examples:
  auractl instance resolve -e production
  auractl instance resolve --instance neo4j+s://abc123.databases.neo4j.io`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			cfg, _, err := loadConfig(g.configFile)
			if err != nil {
				return err
			}

			logger, err := newLogger(g.logLevel, g.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			resolver := instance.NewResolver(cfg, newReferenceManager(cfg, environment, logger))
			resolved, err := resolver.Resolve(cmd.Context(), environment, instanceID)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), outputFormat, resolved, func(t table.Writer) {
				t.AppendHeader(table.Row{"ENVIRONMENT", "INSTANCE", "SOURCE", "RESTORE TARGET"})
				t.AppendRow(table.Row{resolved.Environment, resolved.InstanceID, resolved.SourceInstanceID, resolved.RestoreTargetID})
			})
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

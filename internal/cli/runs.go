package cli

import (
	"fmt"

	"github.com/davidthor/auractl/pkg/state"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/spf13/cobra"
)

func newRunsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Inspect recorded restore and reset runs",
		Long:    `Commands for reading the run records written by restore and reset.`,
	}

	cmd.AddCommand(newRunsListCmd(g))
	cmd.AddCommand(newRunsGetCmd(g))
	cmd.AddCommand(newRunsDeleteCmd(g))

	return cmd
}

func newRunsListCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		workflow     string
		status       string
		limit        int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List runs, newest first",
		Long: `List recorded runs, newest first.

Examples:
  auractl runs list
  auractl runs list -e staging --status failed -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			mgr, err := openRecords(g)
			if err != nil {
				return err
			}
			defer mgr.Close()

			refs, err := mgr.ListRuns(cmd.Context(), state.RunFilter{
				Environment: environment,
				Workflow:    types.Workflow(workflow),
				Status:      types.RunStatus(status),
				Limit:       limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if refs == nil {
				refs = []types.RunRef{}
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, refs, runsTable(refs))
		},
	}

	cmd.Flags().StringVarP(&environment, "environment", "e", "", "Only runs of this environment")
	cmd.Flags().StringVar(&workflow, "workflow", "", "Only runs of this workflow (restore, backup-reset-restore, resume)")
	cmd.Flags().StringVar(&status, "status", "", "Only runs with this status (running, succeeded, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newRunsGetCmd(g *globalFlags) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one run with its phases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			mgr, err := openRecords(g)
			if err != nil {
				return err
			}
			defer mgr.Close()

			run, err := mgr.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get run %s: %w", args[0], err)
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, run, runTable(run))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newRunsDeleteCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete run records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openRecords(g)
			if err != nil {
				return err
			}
			defer mgr.Close()

			for _, id := range args {
				if err := mgr.DeleteRun(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete run %s: %w", id, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Deleted run %s\n", id)
			}
			return nil
		},
	}

	return cmd
}

func openRecords(g *globalFlags) (state.Manager, error) {
	cfg, _, err := loadConfig(g.configFile)
	if err != nil {
		return nil, err
	}
	mgr, err := createRecordManager(cfg.Records, g.recordsBackend, g.recordsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open run records: %w", err)
	}
	return mgr, nil
}

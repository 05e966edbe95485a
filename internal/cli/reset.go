package cli

import (
	"fmt"

	"github.com/davidthor/auractl/pkg/aura"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/spf13/cobra"
)

func newResetCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		blankID      string
		blankSource  string
		await        bool
		autoApprove  bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Back up, reset to blank, and restore an instance",
		Long: `Run the backup-reset-restore workflow on the environment's instance:

  1. backup   snapshot the instance and wait for it to complete
  2. reset    overwrite the instance from the blank snapshot and wait for it
  3. restore  overwrite the instance from the backup taken in step 1

The blank snapshot comes from --blank-snapshot-id or
neo4j.backup.reset_workflow.snapshot_id. A failed step stops the workflow;
nothing is rolled back. The run record (printed, and saved to the record
backend) names the failed phase and the backup snapshot. When the reset or
restore phase failed, 'auractl reset resume <run-id>' restores the backup.

Examples:
  auractl reset -e staging --await
  auractl reset -e staging --blank-snapshot-id env:BLANK_SNAPSHOT --auto-approve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}

			s, err := openSession(cmd, g, sessionOptions{environment: environment, records: true, events: true})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if !autoApprove {
				resolved, err := s.orch.Resolve(ctx, environment, instanceID)
				if err != nil {
					return err
				}
				if !confirm(cmd, fmt.Sprintf("Reset instance %s (%s) to the blank snapshot and restore it?", resolved.InstanceID, resolved.Environment)) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Reset cancelled.")
					return nil
				}
			}

			run, err := s.orch.BackupResetRestore(ctx, aura.WorkflowOptions{
				Environment:         environment,
				Instance:            instanceID,
				BlankSnapshotID:     blankID,
				BlankSourceInstance: blankSource,
				Await:               await,
			})
			s.progress.Stop()
			return finishRun(cmd, s, outputFormat, run, err)
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVar(&blankID, "blank-snapshot-id", "", "Blank snapshot to reset to (default from reset_workflow.snapshot_id)")
	cmd.Flags().StringVar(&blankSource, "blank-source", "", "Instance the blank snapshot belongs to (default from reset_workflow.source_instance_id)")
	cmd.Flags().BoolVar(&await, "await", false, "Wait until the instance is running after the final restore")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip confirmation prompt")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	cmd.AddCommand(newResetResumeCmd(g))

	return cmd
}

func newResetResumeCmd(g *globalFlags) *cobra.Command {
	var (
		await        bool
		autoApprove  bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Restore the backup of a failed reset",
		Long: `Finish a backup-reset-restore run that failed in its reset or restore
phase by restoring the instance from the run's backup snapshot. The resume is
recorded as a new run that points back to the original one.

Examples:
  auractl runs list --status failed
  auractl reset resume 3f2b6d1e-... --await`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}

			s, err := openSession(cmd, g, sessionOptions{records: true, events: true})
			if err != nil {
				return err
			}
			defer s.Close()

			if s.records == nil {
				return fmt.Errorf("run records are unavailable; check --records-backend and --records-config")
			}

			ctx := cmd.Context()
			prev, err := s.records.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load run %s: %w", args[0], err)
			}

			if !autoApprove {
				if !confirm(cmd, fmt.Sprintf("Overwrite instance %s from backup %s?", prev.InstanceID, prev.BackupSnapshotID)) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Resume cancelled.")
					return nil
				}
			}

			run, err := s.orch.Resume(ctx, prev, await)
			s.progress.Stop()
			return finishRun(cmd, s, outputFormat, run, err)
		},
	}

	cmd.Flags().BoolVar(&await, "await", false, "Wait until the instance is running after the restore")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip confirmation prompt")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

// finishRun prints the run record, including a partial one next to err, and
// points at resume when the instance was left without its data.
func finishRun(cmd *cobra.Command, s *session, outputFormat string, run *types.RunRecord, err error) error {
	if run != nil {
		if werr := writeOutput(cmd.OutOrStdout(), outputFormat, run, runTable(run)); werr != nil && err == nil {
			return werr
		}
	}
	if err != nil && run != nil && run.BackupSnapshotID != "" &&
		(run.FailedPhase == aura.PhaseReset || run.FailedPhase == aura.PhaseRestore) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nInstance %s does not hold its original data. Backup snapshot: %s\n", run.InstanceID, run.BackupSnapshotID)
		if s.records != nil {
			// A failed resume is retried from the run it resumed.
			id := run.ID
			if run.ResumedFrom != "" {
				id = run.ResumedFrom
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Restore it with: auractl reset resume %s\n", id)
		}
	}
	return err
}

package cli

import (
	"fmt"

	"github.com/davidthor/auractl/pkg/aura"
	"github.com/spf13/cobra"
)

func newRestoreCmd(g *globalFlags) *cobra.Command {
	var (
		environment    string
		snapshotID     string
		useLatest      bool
		sourceInstance string
		targetInstance string
		await          bool
		autoApprove    bool
		outputFormat   string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Overwrite an instance from a snapshot",
		Long: `Overwrite the environment's restore target with the data of a snapshot.

The snapshot is given with --snapshot-id, or --latest picks the newest
snapshot of the source instance (of the target when there is no distinct
source). The source and target default to the environment's
source_instance_id and restore_target_id.

All data on the target instance is replaced.

Examples:
  auractl restore -e staging --snapshot-id 5e8f3c2a-... --await
  auractl restore -e staging --latest --source prod01 --auto-approve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFormat); err != nil {
				return err
			}
			if snapshotID != "" && useLatest {
				return fmt.Errorf("--snapshot-id and --latest are mutually exclusive")
			}

			s, err := openSession(cmd, g, sessionOptions{environment: environment, records: true, events: true})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if !autoApprove {
				resolved, err := s.orch.Resolve(ctx, environment, targetInstance)
				if err != nil {
					return err
				}
				if !confirm(cmd, fmt.Sprintf("Overwrite all data on instance %s (%s)?", resolved.RestoreTargetID, resolved.Environment)) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Restore cancelled.")
					return nil
				}
			}

			result, err := s.orch.Restore(ctx, aura.RestoreOptions{
				Environment:    environment,
				SnapshotID:     snapshotID,
				UseLatest:      useLatest,
				SourceInstance: sourceInstance,
				TargetInstance: targetInstance,
				Await:          await,
			})
			s.progress.Stop()
			if err != nil {
				if result != nil && result.RunID != "" && s.records != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Restore run %s failed; see 'auractl runs get %s'.\n", result.RunID, result.RunID)
				}
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, result, restoreTable(result))
		},
	}

	cmd.Flags().StringVarP(&environment, "environment", "e", "", "Environment whose restore target to overwrite")
	cmd.Flags().StringVar(&snapshotID, "snapshot-id", "", "Snapshot to restore")
	cmd.Flags().BoolVar(&useLatest, "latest", false, "Restore the most recent snapshot of the source instance")
	cmd.Flags().StringVar(&sourceInstance, "source", "", "Source instance the snapshot belongs to")
	cmd.Flags().StringVar(&targetInstance, "target", "", "Target instance, bypassing the environment mapping")
	cmd.Flags().BoolVar(&await, "await", false, "Wait until the target is running again")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip confirmation prompt")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

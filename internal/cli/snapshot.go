package cli

import (
	"fmt"

	"github.com/davidthor/auractl/pkg/aura"
	"github.com/davidthor/auractl/pkg/errors"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap", "snapshots"},
		Short:   "Create and inspect instance snapshots",
		Long:    `Commands for creating, listing, and waiting on snapshots of an instance.`,
	}

	cmd.AddCommand(newSnapshotCreateCmd(g))
	cmd.AddCommand(newSnapshotListCmd(g))
	cmd.AddCommand(newSnapshotGetCmd(g))
	cmd.AddCommand(newSnapshotLatestCmd(g))
	cmd.AddCommand(newSnapshotWaitCmd(g))

	return cmd
}

// addTargetFlags registers the environment/instance selection shared by most
// commands.
func addTargetFlags(cmd *cobra.Command, environment, instanceID *string) {
	cmd.Flags().StringVarP(environment, "environment", "e", "", "Environment whose instance to use (default from config, else prod)")
	cmd.Flags().StringVar(instanceID, "instance", "", "Instance id or connection URI, bypassing the environment mapping")
}

func newSnapshotCreateCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		await        bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot an instance",
		Long: `Create an on-demand snapshot of the environment's instance.

Without --await the aura-cli response is printed as soon as the snapshot is
accepted. With --await auractl polls until the snapshot is Completed and prints
the final snapshot record.

Examples:
  auractl snapshot create -e staging
  auractl snapshot create -e prod --await`,
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

			snap, err := s.orch.Snapshot(cmd.Context(), aura.SnapshotOptions{
				Environment: environment,
				Instance:    instanceID,
				Await:       await,
			})
			if err != nil {
				return err
			}
			s.progress.Stop()
			return writeOutput(cmd.OutOrStdout(), outputFormat, snap, recordTable(snap))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().BoolVar(&await, "await", false, "Wait until the snapshot is Completed")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newSnapshotListCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		date         string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List snapshots of an instance",
		Long: `List the snapshots of the environment's instance, optionally limited to
one day.

Examples:
  auractl snapshot list -e prod
  auractl snapshot list -e prod --date 2024-06-01 -o table`,
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
			snapshots, err := s.orch.ListSnapshots(ctx, resolved.InstanceID, date)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, snapshots, snapshotsTable(snapshots))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVar(&date, "date", "", "Only list snapshots taken on this day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newSnapshotGetCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "get <snapshot-id>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
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
			snap, err := s.orch.GetSnapshot(ctx, args[0], resolved.InstanceID)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, snap, recordTable(snap))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newSnapshotLatestCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent snapshot of an instance",
		Long: `Show the snapshot with the newest timestamp. Snapshots without a
parseable timestamp are only chosen when no other snapshot exists.`,
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
			snap, err := s.orch.LatestSnapshot(ctx, resolved.InstanceID)
			if err != nil {
				return err
			}
			if snap == nil {
				return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no snapshots found for instance %s", resolved.InstanceID)).
					WithDetail("instance_id", resolved.InstanceID)
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, snap, recordTable(snap))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

func newSnapshotWaitCmd(g *globalFlags) *cobra.Command {
	var (
		environment  string
		instanceID   string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "wait <snapshot-id>",
		Short: "Wait for a snapshot to complete",
		Long: `Poll a snapshot until it is Completed (exit 0) or Failed (exit 1), or the
operation timeout elapses.`,
		Args: cobra.ExactArgs(1),
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
			snap, err := s.orch.WaitForSnapshot(ctx, args[0], resolved.InstanceID)
			if err != nil {
				return err
			}
			s.progress.Stop()
			return writeOutput(cmd.OutOrStdout(), outputFormat, snap, recordTable(snap))
		},
	}

	addTargetFlags(cmd, &environment, &instanceID)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml, table")

	return cmd
}

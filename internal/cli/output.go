package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/davidthor/auractl/pkg/aura"
	"github.com/davidthor/auractl/pkg/state/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by -o/--output.
const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML, outputTable:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected json, yaml, or table)", format)
	}
}

// writeOutput renders v in the requested format. fill populates the table
// for the table format.
func writeOutput(w io.Writer, format string, v interface{}, fill func(t table.Writer)) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case outputYAML:
		data, err := marshalYAML(v)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))
	case outputTable:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		fill(t)
		t.Render()
	default:
		return validateOutput(format)
	}
	return nil
}

// marshalYAML goes through JSON so YAML keys match the JSON field names.
func marshalYAML(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return out, nil
}

// recordTable lists the keys of a response as KEY/VALUE rows.
func recordTable(r map[string]interface{}) func(t table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"KEY", "VALUE"})
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.AppendRow(table.Row{k, formatValue(r[k])})
		}
	}
}

func snapshotsTable(snapshots []aura.Record) func(t table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"SNAPSHOT ID", "STATUS", "TIMESTAMP", "INSTANCE"})
		for _, s := range snapshots {
			t.AppendRow(table.Row{recordSnapshotID(s), s.Status(), s.Field("timestamp"), s.Field("instance_id")})
		}
		t.AppendFooter(table.Row{"", "", "Total", len(snapshots)})
	}
}

func restoreTable(res *aura.RestoreResult) func(t table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"RUN", "ENVIRONMENT", "TARGET", "SOURCE", "SNAPSHOT", "STATUS"})
		t.AppendRow(table.Row{res.RunID, res.Environment, res.TargetInstanceID, res.SourceInstanceID, res.SnapshotID, res.Response.Status()})
	}
}

func runTable(run *types.RunRecord) func(t table.Writer) {
	return func(t table.Writer) {
		t.SetTitle(fmt.Sprintf("%s %s (%s) %s", run.Workflow, run.ID, run.InstanceID, run.Status))
		t.AppendHeader(table.Row{"PHASE", "STATUS", "TARGET", "SOURCE", "SNAPSHOT", "DURATION", "ERROR"})
		for _, p := range run.Phases {
			t.AppendRow(table.Row{
				p.Name,
				p.Status,
				p.TargetInstanceID,
				p.SourceInstanceID,
				p.SnapshotID,
				formatDuration(p.StartedAt, p.FinishedAt),
				truncateString(p.Error, 60),
			})
		}
		if run.BackupSnapshotID != "" {
			t.AppendFooter(table.Row{"backup", run.BackupSnapshotID})
		}
	}
}

func runsTable(refs []types.RunRef) func(t table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"ID", "WORKFLOW", "ENVIRONMENT", "INSTANCE", "STATUS", "FAILED PHASE", "STARTED"})
		for _, r := range refs {
			t.AppendRow(table.Row{
				r.ID,
				r.Workflow,
				r.Environment,
				r.InstanceID,
				r.Status,
				r.FailedPhase,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
	}
}

func configTable(view configView) func(t table.Writer) {
	return func(t table.Writer) {
		t.SetTitle(fmt.Sprintf("config: %s", orDefault(view.ConfigFile, "(none)")))
		t.AppendHeader(table.Row{"ENVIRONMENT", "INSTANCE", "SOURCE", "RESTORE TARGET"})
		names := make([]string, 0, len(view.Instances))
		for name := range view.Instances {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e := view.Instances[name]
			t.AppendRow(table.Row{name, e.InstanceID, e.SourceInstanceID, e.RestoreTargetID})
		}
	}
}

func recordSnapshotID(r aura.Record) string {
	if id := r.Field("snapshot_id"); id != "" {
		return id
	}
	return r.Field("id")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return truncateString(string(data), 80)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return ""
	}
	return end.Sub(start).Round(time.Second).String()
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

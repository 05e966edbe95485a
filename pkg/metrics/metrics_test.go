package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveCommand(t *testing.T) {
	r := New()

	r.ObserveCommand("instance snapshot create", "success", 2*time.Second)
	r.ObserveCommand("instance snapshot create", "success", time.Second)
	r.ObserveCommand("instance overwrite", "failure", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.invocations.WithLabelValues("instance snapshot create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.invocations.WithLabelValues("instance overwrite", "failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestRegistry_PollsAndPhases(t *testing.T) {
	r := New()

	r.ObservePoll("snapshot")
	r.ObservePoll("snapshot")
	r.ObservePoll("instance")
	r.ObservePhase("backup", "succeeded")
	r.ObservePhase("restore", "failed")

	expected := `
# HELP auractl_poll_attempts_total Status polls performed while waiting, by resource kind.
# TYPE auractl_poll_attempts_total counter
auractl_poll_attempts_total{kind="instance"} 1
auractl_poll_attempts_total{kind="snapshot"} 2
`
	require.NoError(t, testutil.CollectAndCompare(r.polls, strings.NewReader(expected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.phases.WithLabelValues("restore", "failed")))
}

func TestRegistry_WriteTextfile(t *testing.T) {
	r := New()
	r.ObservePhase("reset", "succeeded")

	path := filepath.Join(t.TempDir(), "auractl.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `auractl_workflow_phases_total{outcome="succeeded",phase="reset"} 1`)
}

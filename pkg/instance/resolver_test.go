package instance

import (
	"context"
	"testing"

	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare id", input: "abc123", want: "abc123"},
		{name: "padded id", input: "  abc123 ", want: "abc123"},
		{name: "neo4j+s uri", input: "neo4j+s://abc123.databases.neo4j.io", want: "abc123"},
		{name: "uri with port and path", input: "bolt://abc123.example.internal:7687/db", want: "abc123"},
		{name: "uri with userinfo", input: "neo4j://user:pw@abc123.databases.neo4j.io", want: "abc123"},
		{name: "managed host without scheme", input: "abc123.databases.neo4j.io", want: "abc123"},
		{name: "undotted uri host", input: "neo4j://localhost:7687", want: "localhost"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeID(tc.input))
		})
	}
}

func newConfig(instances map[string]config.InstanceEntry) *config.Config {
	cfg := config.New()
	cfg.Instances = instances
	return cfg
}

func TestResolve_EntryForms(t *testing.T) {
	t.Setenv("AURACTL_TEST_ENV_ID", "abc123")

	tests := []struct {
		name  string
		entry config.InstanceEntry
	}{
		{name: "bare string", entry: config.InstanceEntry{InstanceID: "abc123"}},
		{name: "full record", entry: config.InstanceEntry{
			InstanceID:       "abc123",
			SourceInstanceID: "abc123",
			RestoreTargetID:  "abc123",
		}},
		{name: "env reference", entry: config.InstanceEntry{InstanceID: "env:AURACTL_TEST_ENV_ID"}},
		{name: "connection uri", entry: config.InstanceEntry{InstanceID: "neo4j+s://abc123.databases.neo4j.io"}},
		{name: "mixed record", entry: config.InstanceEntry{
			InstanceID:       "env:AURACTL_TEST_ENV_ID",
			SourceInstanceID: "neo4j+s://abc123.databases.neo4j.io",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(newConfig(map[string]config.InstanceEntry{"dev": tc.entry}), nil)

			got, err := r.Resolve(context.Background(), "dev", "")
			require.NoError(t, err)
			assert.Equal(t, &Resolved{
				Environment:      "dev",
				InstanceID:       "abc123",
				SourceInstanceID: "abc123",
				RestoreTargetID:  "abc123",
			}, got)
		})
	}
}

func TestResolve_DistinctRoles(t *testing.T) {
	r := NewResolver(newConfig(map[string]config.InstanceEntry{
		"prod": {InstanceID: "live01", SourceInstanceID: "src02", RestoreTargetID: "neo4j+s://tgt03.databases.neo4j.io"},
	}), nil)

	got, err := r.Resolve(context.Background(), "PROD", "")
	require.NoError(t, err)
	assert.Equal(t, "live01", got.InstanceID)
	assert.Equal(t, "src02", got.SourceInstanceID)
	assert.Equal(t, "tgt03", got.RestoreTargetID)
}

func TestResolve_Override(t *testing.T) {
	cfg := newConfig(map[string]config.InstanceEntry{"prod": {InstanceID: "live01"}})

	t.Run("uses caller environment", func(t *testing.T) {
		got, err := NewResolver(cfg, nil).Resolve(context.Background(), "Staging", "neo4j://ovr01.databases.neo4j.io")
		require.NoError(t, err)
		assert.Equal(t, &Resolved{
			Environment:      "staging",
			InstanceID:       "ovr01",
			SourceInstanceID: "ovr01",
			RestoreTargetID:  "ovr01",
		}, got)
	})

	t.Run("falls back to configured default", func(t *testing.T) {
		withDefault := newConfig(nil)
		withDefault.Environment = "dev"
		got, err := NewResolver(withDefault, nil).Resolve(context.Background(), "", "ovr01")
		require.NoError(t, err)
		assert.Equal(t, "dev", got.Environment)
	})

	t.Run("falls back to prod", func(t *testing.T) {
		got, err := NewResolver(newConfig(nil), nil).Resolve(context.Background(), "", "ovr01")
		require.NoError(t, err)
		assert.Equal(t, "prod", got.Environment)
	})
}

func TestResolve_Alias(t *testing.T) {
	r := NewResolver(newConfig(map[string]config.InstanceEntry{
		"production": {InstanceID: "live01"},
	}), nil)

	got, err := r.Resolve(context.Background(), "prod", "")
	require.NoError(t, err)
	assert.Equal(t, "live01", got.InstanceID)
	assert.Equal(t, "prod", got.Environment)
}

func TestResolve_MissingEnvironment(t *testing.T) {
	r := NewResolver(newConfig(map[string]config.InstanceEntry{"dev": {InstanceID: "x"}}), nil)

	_, err := r.Resolve(context.Background(), "prod", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))

	e := err.(*errors.Error)
	assert.Equal(t, "prod", e.Details["environment"])
	assert.Equal(t, []string{"prod", "production"}, e.Details["tried_keys"])
}

func TestResolve_UnsetEnvReference(t *testing.T) {
	r := NewResolver(newConfig(map[string]config.InstanceEntry{
		"dev": {InstanceID: "env:AURACTL_TEST_UNSET_VARIABLE"},
	}), nil)

	_, err := r.Resolve(context.Background(), "dev", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
	assert.Equal(t, "dev.instance_id", err.(*errors.Error).Details["field"])
}

func TestResolve_EmptyID(t *testing.T) {
	t.Setenv("AURACTL_TEST_EMPTY_ID", "")

	tests := []config.InstanceEntry{
		{InstanceID: ""},
		{InstanceID: "env:AURACTL_TEST_EMPTY_ID"},
		{InstanceID: "   "},
	}
	for _, entry := range tests {
		r := NewResolver(newConfig(map[string]config.InstanceEntry{"dev": entry}), nil)
		_, err := r.Resolve(context.Background(), "dev", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeConfig))
	}
}

func TestResolveOptional(t *testing.T) {
	r := NewResolver(newConfig(nil), nil)

	got, err := r.ResolveOptional(context.Background(), "source", "")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = r.ResolveOptional(context.Background(), "source", "neo4j+s://src.databases.neo4j.io")
	require.NoError(t, err)
	assert.Equal(t, "src", got)
}

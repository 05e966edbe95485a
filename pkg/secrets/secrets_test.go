package secrets

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/davidthor/auractl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	values map[string]string
	calls  int
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[aws.ToString(params.SecretId)]
	if !ok {
		return nil, fmt.Errorf("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestDefaultManager(t *testing.T) {
	m := DefaultManager()
	assert.Equal(t, []string{"awssm", "env"}, m.Providers())
}

func TestManager_Resolve_PassThrough(t *testing.T) {
	m := DefaultManager()
	ctx := context.Background()

	for _, v := range []string{"abc123", "neo4j+s://abc123.databases.neo4j.io", "https://host:7687"} {
		got, err := m.Resolve(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.False(t, m.IsReference(v))
	}
}

func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("AURACTL_TEST_INSTANCE", "abc123")
	m := DefaultManager()
	ctx := context.Background()

	got, err := m.Resolve(ctx, "env:AURACTL_TEST_INSTANCE")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	got, err = m.Resolve(ctx, "ENV: AURACTL_TEST_INSTANCE")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
}

func TestEnvProvider_Unset(t *testing.T) {
	m := DefaultManager()

	_, err := m.Resolve(context.Background(), "env:AURACTL_TEST_DEFINITELY_UNSET")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
	assert.Contains(t, err.Error(), "AURACTL_TEST_DEFINITELY_UNSET")
}

func TestEnvProvider_Defaults(t *testing.T) {
	t.Setenv("AURACTL_TEST_SHADOWED", "from-process")
	p := NewEnvProviderWithDefaults(map[string]string{
		"AURACTL_TEST_SHADOWED":     "from-file",
		"AURACTL_TEST_ONLY_IN_FILE": "def456",
	})
	ctx := context.Background()

	got, err := p.Get(ctx, "AURACTL_TEST_SHADOWED")
	require.NoError(t, err)
	assert.Equal(t, "from-process", got)

	got, err = p.Get(ctx, "AURACTL_TEST_ONLY_IN_FILE")
	require.NoError(t, err)
	assert.Equal(t, "def456", got)

	_, err = p.Get(ctx, "AURACTL_TEST_DEFINITELY_UNSET")
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
}

func TestManager_EmptyReference(t *testing.T) {
	m := DefaultManager()

	_, err := m.Resolve(context.Background(), "env:")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
}

func TestSecretsManagerProvider(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{
		"aura/plain": "abc123",
		"aura/doc":   `{"instance_id":"def456","port":7687}`,
	}}
	m := NewManager()
	m.RegisterProvider(NewSecretsManagerProvider(fake))
	ctx := context.Background()

	got, err := m.Resolve(ctx, "awssm:aura/plain")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	got, err = m.Resolve(ctx, "awssm:aura/doc#instance_id")
	require.NoError(t, err)
	assert.Equal(t, "def456", got)

	// Second lookup of the same secret is served from cache.
	_, err = m.Resolve(ctx, "awssm:aura/doc#port")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)

	_, err = m.Resolve(ctx, "awssm:aura/doc#missing")
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))

	_, err = m.Resolve(ctx, "awssm:aura/absent")
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
}

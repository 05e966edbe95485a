package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/davidthor/auractl/pkg/errors"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider resolves "awssm:<secret-id>[#<json-key>]" references.
// Without a json key the whole secret string is the value; with one, the
// secret string is decoded as a JSON object and the key's value is returned.
type SecretsManagerProvider struct {
	mu     sync.Mutex
	client SecretsManagerAPI
	cache  map[string]string
}

// NewSecretsManagerProvider creates the provider. A nil client is replaced by
// one built from the default AWS configuration on first use.
func NewSecretsManagerProvider(client SecretsManagerAPI) *SecretsManagerProvider {
	return &SecretsManagerProvider{
		client: client,
		cache:  make(map[string]string),
	}
}

func (p *SecretsManagerProvider) Name() string {
	return "awssm"
}

func (p *SecretsManagerProvider) Get(ctx context.Context, key string) (string, error) {
	secretID, field, _ := strings.Cut(key, "#")

	raw, err := p.secretString(ctx, secretID)
	if err != nil {
		return "", err
	}

	if field == "" {
		return raw, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("secret %s is not a JSON object", secretID), err)
	}
	v, ok := doc[field]
	if !ok || v == nil {
		return "", errors.ConfigError(fmt.Sprintf("secret %s has no key %q", secretID, field), map[string]interface{}{
			"reference": "awssm:" + key,
		})
	}
	return fmt.Sprint(v), nil
}

func (p *SecretsManagerProvider) secretString(ctx context.Context, secretID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache[secretID]; ok {
		return v, nil
	}

	if p.client == nil {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeConfig, "failed to load AWS config", err)
		}
		p.client = secretsmanager.NewFromConfig(awsCfg)
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("failed to read secret %s", secretID), err).
			WithDetail("reference", "awssm:"+secretID)
	}
	if out.SecretString == nil {
		return "", errors.ConfigError(fmt.Sprintf("secret %s has no string value", secretID), nil)
	}

	p.cache[secretID] = *out.SecretString
	return *out.SecretString, nil
}

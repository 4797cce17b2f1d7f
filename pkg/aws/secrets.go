package aws

import (
	"context"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient reads string secrets from AWS Secrets Manager. Values are
// memoized for the process lifetime; config is read once at startup, so a
// rotated secret requires a restart to pick up.
type SecretsClient struct {
	sm *secretsmanager.Client

	mu     sync.Mutex
	values map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		sm:     secretsmanager.NewFromConfig(cfg),
		values: make(map[string]string),
	}
}

// GetSecret returns the string value of the named secret, fetching it on
// first use. Binary-only secrets are rejected.
func (c *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[name]; ok {
		return v, nil
	}

	out, err := c.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: sdkaws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q holds no string value", name)
	}

	c.values[name] = *out.SecretString
	return *out.SecretString, nil
}

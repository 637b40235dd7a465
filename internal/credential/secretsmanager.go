package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSecretField = "api_key"
	secretCacheTTL     = 5 * time.Minute
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider reads the token from AWS Secrets Manager. The secret is either
// the raw token or a JSON object holding it under Field. Values are cached briefly so a
// sync cycle does not cost a Secrets Manager call every minute.
type SecretsManagerProvider struct {
	client   SecretsManagerAPI
	secretID string
	field    string
	cache    *expirable.LRU[string, string]
}

func NewSecretsManagerProvider(ctx context.Context, cfg *Config) (*SecretsManagerProvider, error) {
	if cfg.SecretID == "" {
		return nil, fmt.Errorf("credential source %q: secret_id missing", SourceAWS)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		// local endpoints (localstack) accept any static credentials
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newSecretsManagerProvider(client, cfg.SecretID, cfg.Field), nil
}

func newSecretsManagerProvider(client SecretsManagerAPI, secretID, field string) *SecretsManagerProvider {
	if field == "" {
		field = defaultSecretField
	}
	return &SecretsManagerProvider{
		client:   client,
		secretID: secretID,
		field:    field,
		cache:    expirable.NewLRU[string, string](1, nil, secretCacheTTL),
	}
}

func (p *SecretsManagerProvider) Name() string { return SourceAWS }

func (p *SecretsManagerProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.cache.Get(p.secretID); ok {
		return token, nil
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: secret %q", ErrNoCredential, p.secretID)
		}
		return "", fmt.Errorf("get secret %q: %w", p.secretID, err)
	}

	token, err := p.extract(aws.ToString(out.SecretString))
	if err != nil {
		return "", fmt.Errorf("secret %q: %w", p.secretID, err)
	}

	p.cache.Add(p.secretID, token)
	return token, nil
}

func (p *SecretsManagerProvider) extract(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return cleanToken(trimmed)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return "", fmt.Errorf("decode secret json: %w", err)
	}

	value, ok := fields[p.field].(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrNoCredential, p.field)
	}
	return cleanToken(value)
}

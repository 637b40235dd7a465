// Package credential resolves the bearer token used against the remote service.
//
// A Provider is asked for the current token at startup, where a failure is fatal,
// and again at the start of every sync cycle so rotated secrets are picked up.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCredential indicates the provider has no token to hand out.
	ErrNoCredential = errors.New("credential not found")

	// ErrUnknownSource indicates an unsupported credential source in the configuration.
	ErrUnknownSource = errors.New("unknown credential source")
)

const (
	SourceEnv  = "env"
	SourceFile = "file"
	SourceAWS  = "aws"

	SourceKeyring = "keyring"

	DefaultEnvVar = "PLUGSYNC_API_KEY"
)

// Provider hands out the current bearer token.
type Provider interface {
	Name() string
	Token(ctx context.Context) (string, error)
}

// Config selects and configures a Provider.
type Config struct {
	Source   string `mapstructure:"source" json:"source"`
	Env      string `mapstructure:"env" json:"env"`
	DotEnv   string `mapstructure:"dotenv" json:"dotenv"`
	File     string `mapstructure:"file" json:"file"`
	SecretID string `mapstructure:"secret_id" json:"secret_id"`
	Field    string `mapstructure:"field" json:"field"`
	Region   string `mapstructure:"region" json:"region"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Service  string `mapstructure:"service" json:"service"`
	User     string `mapstructure:"user" json:"user"`
}

// New builds the provider named by cfg.Source.
func New(ctx context.Context, cfg *Config) (Provider, error) {
	switch strings.ToLower(cfg.Source) {
	case "", SourceEnv:
		return NewEnvProvider(cfg.Env, cfg.DotEnv), nil
	case SourceFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("credential source %q: file path missing", SourceFile)
		}
		return NewFileProvider(cfg.File), nil
	case SourceAWS:
		return NewSecretsManagerProvider(ctx, cfg)
	case SourceKeyring:
		return NewKeyringProvider(cfg.Service, cfg.User), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// Resolve fetches the token once and fails with a descriptive error when none is available.
func Resolve(ctx context.Context, p Provider) (string, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%s credential: %w", p.Name(), err)
	}
	return token, nil
}

func cleanToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvProvider reads the token from an environment variable. When a dotenv file is
// configured it is loaded first; variables already set in the process win.
type EnvProvider struct {
	envVar string
	dotenv string
}

func NewEnvProvider(envVar, dotenv string) *EnvProvider {
	if envVar == "" {
		envVar = DefaultEnvVar
	}
	return &EnvProvider{envVar: envVar, dotenv: dotenv}
}

func (p *EnvProvider) Name() string { return SourceEnv }

func (p *EnvProvider) Token(_ context.Context) (string, error) {
	if p.dotenv != "" {
		if err := godotenv.Load(p.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load %s: %w", p.dotenv, err)
		}
	}

	token, err := cleanToken(os.Getenv(p.envVar))
	if err != nil {
		return "", fmt.Errorf("%w: $%s is empty", err, p.envVar)
	}
	return token, nil
}

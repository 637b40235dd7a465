package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileProvider reads the token from a file on every call, so rewriting the
// file rotates the credential without a restart.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Name() string { return SourceFile }

func (p *FileProvider) Token(_ context.Context) (string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoCredential, p.path)
	} else if err != nil {
		return "", fmt.Errorf("read %s: %w", p.path, err)
	}

	token, err := cleanToken(string(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s is empty", err, p.path)
	}
	return token, nil
}

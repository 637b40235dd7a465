package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	DefaultKeyringService = "codegpt"
	DefaultKeyringUser    = "api_key"
)

// KeyringProvider reads the token from the OS secret store (Keychain,
// Secret Service or Windows Credential Manager).
type KeyringProvider struct {
	service string
	user    string
}

func NewKeyringProvider(service, user string) *KeyringProvider {
	if service == "" {
		service = DefaultKeyringService
	}
	if user == "" {
		user = DefaultKeyringUser
	}
	return &KeyringProvider{service: service, user: user}
}

func (p *KeyringProvider) Name() string { return SourceKeyring }

func (p *KeyringProvider) Token(_ context.Context) (string, error) {
	secret, err := keyring.Get(p.service, p.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: keyring entry %s/%s", ErrNoCredential, p.service, p.user)
	} else if err != nil {
		return "", fmt.Errorf("read keyring %s/%s: %w", p.service, p.user, err)
	}

	token, err := cleanToken(secret)
	if err != nil {
		return "", fmt.Errorf("%w: keyring entry %s/%s is empty", err, p.service, p.user)
	}
	return token, nil
}

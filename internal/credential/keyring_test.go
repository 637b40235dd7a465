package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringProvider(t *testing.T) {
	keyring.MockInit()

	t.Run("missing entry", func(t *testing.T) {
		_, err := NewKeyringProvider("plugsync-test", "nobody").Token(t.Context())
		assert.ErrorIs(t, err, ErrNoCredential)
	})

	t.Run("reads the default entry", func(t *testing.T) {
		require.NoError(t, keyring.Set(DefaultKeyringService, DefaultKeyringUser, " sk-keyring\n"))

		p, err := New(t.Context(), &Config{Source: SourceKeyring})
		require.NoError(t, err)
		assert.Equal(t, SourceKeyring, p.Name())

		token, err := p.Token(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "sk-keyring", token)
	})

	t.Run("empty entry", func(t *testing.T) {
		require.NoError(t, keyring.Set("plugsync-test", "empty", "   "))
		_, err := NewKeyringProvider("plugsync-test", "empty").Token(t.Context())
		assert.ErrorIs(t, err, ErrNoCredential)
	})
}

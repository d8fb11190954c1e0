package authcode

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChallenge(t *testing.T) {
	t.Parallel()
	calcChallenge := func(verifier string) string {
		h := sha256.New()
		_, _ = h.Write([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	}
	t.Run("oauth2", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewChallenge(FlowOAuth2)
		require.NoError(err)
		// 32 bytes of entropy encode to 43 base64url characters
		assert.GreaterOrEqual(len(got.Verifier()), 43)
		assert.Equal(calcChallenge(got.Verifier()), got.CodeChallenge())
		assert.NotEmpty(got.State())
		assert.Empty(got.Nonce())
	})
	t.Run("oidc", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewChallenge(FlowOIDC)
		require.NoError(err)
		assert.Equal(calcChallenge(got.Verifier()), got.CodeChallenge())
		assert.NotEmpty(got.Nonce())
		assert.NotEqualf(got.State(), got.Nonce(), "state should not equal nonce")
	})
	t.Run("fresh-material-per-call", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		first, err := NewChallenge(FlowOIDC)
		require.NoError(err)
		second, err := NewChallenge(FlowOIDC)
		require.NoError(err)
		assert.NotEqual(first.Verifier(), second.Verifier())
		assert.NotEqual(first.State(), second.State())
		assert.NotEqual(first.Nonce(), second.Nonce())
	})
	t.Run("unknown-flow", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewChallenge(Flow(99))
		require.Error(err)
		assert.Nil(got)
		assert.True(errors.Is(err, ErrInvalidParameter))
	})
}

func TestChallenge_Serialize(t *testing.T) {
	t.Parallel()
	t.Run("oauth2-omits-nonce", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewChallenge(FlowOAuth2)
		require.NoError(err)
		m := c.Serialize()
		assert.Len(m, 2)
		assert.Equal(c.Verifier(), m[StorageKeyVerifier])
		assert.Equal(c.State(), m[StorageKeyCSRF])
		_, ok := m[StorageKeyNonce]
		assert.False(ok)
	})
	t.Run("oidc-all-fields", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewChallenge(FlowOIDC)
		require.NoError(err)
		m := c.Serialize()
		assert.Len(m, 3)
		assert.Equal(c.Verifier(), m[StorageKeyVerifier])
		assert.Equal(c.State(), m[StorageKeyCSRF])
		assert.Equal(c.Nonce(), m[StorageKeyNonce])
	})
}

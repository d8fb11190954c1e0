package authcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	s := NewMemoryStorage()

	_, ok, err := s.Get("missing")
	require.NoError(err)
	assert.False(ok)

	// an empty string is a set value, distinct from an absent key
	require.NoError(s.Set("empty", ""))
	v, ok, err := s.Get("empty")
	require.NoError(err)
	assert.True(ok)
	assert.Empty(v)

	require.NoError(s.Set("k", "v"))
	v, ok, err = s.Get("k")
	require.NoError(err)
	assert.True(ok)
	assert.Equal("v", v)

	require.NoError(s.Delete("k"))
	_, ok, err = s.Get("k")
	require.NoError(err)
	assert.False(ok)

	// deleting an absent key is not an error
	require.NoError(s.Delete("k"))
}

func TestStateStore_SaveLoad(t *testing.T) {
	t.Parallel()
	for _, flow := range []Flow{FlowOAuth2, FlowOIDC} {
		t.Run(flow.String(), func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			store, err := NewStateStore(flow, NewMemoryStorage())
			require.NoError(err)

			c, err := NewChallenge(flow)
			require.NoError(err)
			require.NoError(store.Save(c))

			got, err := store.Load()
			require.NoError(err)
			assert.Equal(c, got)
		})
	}
}

func TestStateStore_Load_Absent(t *testing.T) {
	t.Parallel()
	for _, flow := range []Flow{FlowOAuth2, FlowOIDC} {
		t.Run(flow.String(), func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			store, err := NewStateStore(flow, NewMemoryStorage())
			require.NoError(err)

			got, err := store.Load()
			require.Error(err)
			assert.Nil(got)
			assert.True(errors.Is(err, ErrNoActiveChallenge))
			assert.False(errors.Is(err, ErrIncompleteChallenge))
		})
	}
}

func TestStateStore_Load_Partial(t *testing.T) {
	t.Parallel()
	t.Run("oauth2-tolerates-absent-csrf", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		storage := NewMemoryStorage()
		require.NoError(storage.Set(StorageKeyVerifier, "v1"))
		store, err := NewStateStore(FlowOAuth2, storage)
		require.NoError(err)

		got, err := store.Load()
		require.NoError(err)
		assert.Equal("v1", got.Verifier())
		assert.NotEmpty(got.CodeChallenge())
		assert.Empty(got.State())
	})
	t.Run("oauth2-tolerates-absent-verifier", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		storage := NewMemoryStorage()
		require.NoError(storage.Set(StorageKeyCSRF, "c1"))
		store, err := NewStateStore(FlowOAuth2, storage)
		require.NoError(err)

		got, err := store.Load()
		require.NoError(err)
		assert.Empty(got.Verifier())
		assert.Empty(got.CodeChallenge())
		assert.Equal("c1", got.State())
	})
	t.Run("oidc-fails-closed", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		storage := NewMemoryStorage()
		require.NoError(storage.Set(StorageKeyVerifier, "v1"))
		require.NoError(storage.Set(StorageKeyCSRF, "c1"))
		store, err := NewStateStore(FlowOIDC, storage)
		require.NoError(err)

		got, err := store.Load()
		require.Error(err)
		assert.Nil(got)
		assert.True(errors.Is(err, ErrNoActiveChallenge))
		assert.True(errors.Is(err, ErrIncompleteChallenge))
		assert.Contains(err.Error(), StorageKeyNonce)
	})
}

func TestStateStore_Save_PartialUpdate(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	storage := NewMemoryStorage()
	// an unrelated key written by a previous oidc attempt
	require.NoError(storage.Set(StorageKeyNonce, "n-old"))

	store, err := NewStateStore(FlowOAuth2, storage)
	require.NoError(err)
	c, err := NewChallenge(FlowOAuth2)
	require.NoError(err)
	require.NoError(store.Save(c))

	// saving a challenge without a nonce must not clear the nonce key
	v, ok, err := storage.Get(StorageKeyNonce)
	require.NoError(err)
	assert.True(ok)
	assert.Equal("n-old", v)
}

func TestStateStore_Clear(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	storage := NewMemoryStorage()
	store, err := NewStateStore(FlowOIDC, storage)
	require.NoError(err)

	c, err := NewChallenge(FlowOIDC)
	require.NoError(err)
	require.NoError(store.Save(c))
	require.NoError(store.Clear())

	for _, k := range []string{StorageKeyVerifier, StorageKeyCSRF, StorageKeyNonce} {
		_, ok, err := storage.Get(k)
		require.NoError(err)
		assert.False(ok)
	}
}

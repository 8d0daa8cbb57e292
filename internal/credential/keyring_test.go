package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyring = prev })
}

func TestSetGetDelete(t *testing.T) {
	useArrayKeyring(t)

	require.NoError(t, Set(KeyJWTSecret, "s3cret"))
	v, err := Get(KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	require.NoError(t, Delete(KeyJWTSecret))
	_, err = Get(KeyJWTSecret)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestResolve(t *testing.T) {
	useArrayKeyring(t)

	v, err := Resolve("from-env", KeyGoogleClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	v, err = Resolve("", KeyGoogleClientSecret)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, Set(KeyGoogleClientSecret, "from-keyring"))
	v, err = Resolve("", KeyGoogleClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", v)
}

func TestRejectsUnknownKeys(t *testing.T) {
	useArrayKeyring(t)

	assert.ErrorIs(t, Set("aws_secret", "x"), ErrUnknownKey)
	_, err := Get("aws_secret")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.ErrorIs(t, Delete("aws_secret"), ErrUnknownKey)
	assert.Error(t, Set(KeyJWTSecret, ""))
}

func TestStored(t *testing.T) {
	useArrayKeyring(t)

	stored, err := Stored()
	require.NoError(t, err)
	assert.Empty(t, stored)

	require.NoError(t, Set(KeyAnthropicAPIKey, "sk-ant"))
	require.NoError(t, Set(KeyJWTSecret, "jwt"))
	stored, err = Stored()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyJWTSecret, KeyAnthropicAPIKey}, stored)

	require.NoError(t, Delete(KeyJWTSecret))
	require.NoError(t, Delete(KeyJWTSecret), "deleting twice is fine")
}

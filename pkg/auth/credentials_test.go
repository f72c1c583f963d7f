package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	err := manager.Store(&Credentials{Token: "eyJ0eXAiOiJKV1QiLCJhbGciOi"})
	require.NoError(t, err)
	assert.Equal(t, 1, mockStore.Count())

	token, err := manager.Token("")
	require.NoError(t, err)
	assert.Equal(t, "eyJ0eXAiOiJKV1QiLCJhbGciOi", token)

	creds, err := manager.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, creds.Profile)
	assert.False(t, creds.LastModified.IsZero())

	list, err := manager.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, manager.Delete(""))
	_, err = manager.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, mockStore.Count())
}

func TestCredentialManager_RequiresToken(t *testing.T) {
	manager, _ := NewMockManager()
	assert.Error(t, manager.Store(&Credentials{}))
	assert.Error(t, manager.Store(nil))
}

func TestCredentialManager_Fallback(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	fallback := NewMockStore()

	manager := NewManagerWithStores(broken, fallback)
	require.NoError(t, manager.Store(&Credentials{Profile: "work", Token: "token-123456789"}))

	assert.Equal(t, 0, broken.Count())
	assert.True(t, fallback.Exists("work"))

	token, err := manager.Token("work")
	require.NoError(t, err)
	assert.Equal(t, "token-123456789", token)
}

func TestCredentialManager_DeleteMissing(t *testing.T) {
	manager, _ := NewMockManager()
	assert.Error(t, manager.Delete("nobody"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "********", MaskToken("short"))
	assert.Equal(t, "abcd...wxyz", MaskToken("abcdefghijklmnopqrstuvwxyz"))

	masked := SanitizeCredentials(&Credentials{Profile: "default", Token: "abcdefghijklmnopqrstuvwxyz"})
	assert.Equal(t, "default", masked.Profile)
	assert.Equal(t, "abcd...wxyz", masked.Token)
	assert.Nil(t, SanitizeCredentials(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credentials{Profile: "default", Token: "secret-token"}))
	assert.True(t, store.Exists("default"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "secret-token")

	// A second store with the same passphrase can read the file
	again, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	creds, err := again.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", creds.Token)

	list, err := again.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, again.Delete("default"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, again.Delete("default"), ErrCredentialsNotFound)
}

func TestEncryptedFileStore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnvVar, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credentials{Profile: "default", Token: "secret-token"}))

	t.Setenv(PassphraseEnvVar, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("default")
	assert.Error(t, err)
}

func TestEncryptedFileStore_GeneratedKeyFile(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credentials{Profile: "work", Token: "work-token"}))
	require.NoError(t, store.Store(&Credentials{Profile: "default", Token: "secret-token"}))

	info, err := os.Stat(path + ".key")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var v vaultFile
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, vaultVersion, v.Version)
	assert.Len(t, v.Salt, saltLen)
	assert.NotContains(t, string(raw), "work-token")

	// A new store picks up the same key file
	again, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	list, err := again.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "default", list[0].Profile)
	assert.Equal(t, "work-token", list[1].Token)
	assert.False(t, list[1].LastModified.IsZero())

	require.NoError(t, again.Delete("work"))
	require.NoError(t, again.Delete("default"))
	_, err = os.Stat(path + ".key")
	assert.NoError(t, err)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnvVar, "")
	assert.False(t, store.Exists(""))
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv(TokenEnvVar, "env-token")
	creds, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.Token)
	assert.Equal(t, DefaultProfile, creds.Profile)

	assert.ErrorIs(t, store.Store(creds), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(""), ErrStoreUnavailable)
}

func TestManager_EnvironmentFallback(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-token")
	manager := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())

	token, err := manager.Token("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", token)
}

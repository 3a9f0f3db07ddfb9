package session

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/vault"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

func TestTokensPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	assert.False(t, s.SignedIn())

	require.NoError(t, s.SaveTokens(TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, s.SaveTokens(TokenPair{AccessToken: "a2"}))
	assert.Equal(t, TokenPair{AccessToken: "a2", RefreshToken: "r1"}, s.Tokens())

	reopened, err := Open(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "a2", reopened.AccessToken())
	assert.Equal(t, "r1", reopened.Tokens().RefreshToken)
}

func TestSealedFilesHideTokens(t *testing.T) {
	dir := t.TempDir()
	sealer, err := vault.New(dir).Sealer()
	require.NoError(t, err)
	s, err := Open(filepath.Join(dir, "session"), sealer)
	require.NoError(t, err)
	require.NoError(t, s.SaveTokens(TokenPair{AccessToken: "secret-access", RefreshToken: "secret-refresh"}))

	raw, err := os.ReadFile(filepath.Join(dir, "session", "tokens.json"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("secret-access")))

	reopened, err := Open(filepath.Join(dir, "session"), sealer)
	require.NoError(t, err)
	assert.Equal(t, "secret-access", reopened.AccessToken())
}

func TestClearKeepsDraft(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveTokens(TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.SaveUser(models.User{ID: "u1", Email: "ops@garage.ae"}))
	require.NoError(t, s.SaveProfile(map[string]string{"garage_name": "Al Quoz Motors"}))
	require.NoError(t, s.SaveDraft(Draft{SessionID: "reg-1", Step: "location", ExpiresAt: time.Now().Add(time.Hour)}))

	u, ok, err := s.User()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	require.NoError(t, s.Clear())
	assert.False(t, s.SignedIn())
	_, ok, _ = s.User()
	assert.False(t, ok)
	var p map[string]string
	ok, _ = s.LoadProfile(&p)
	assert.False(t, ok)

	d, ok, err := s.Draft()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "reg-1", d.SessionID)

	require.NoError(t, s.ClearDraft())
	_, ok, _ = s.Draft()
	assert.False(t, ok)
	require.NoError(t, s.Clear(), "clearing twice is fine")
}

package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "707172737475767778797a7b7c7d7e7f808182838485868788898a8b8c8d8e8f"

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, err := NewTokenService(testKey)
	require.NoError(t, err)

	token, err := svc.Issue("ws-1", "user-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ws-1", claims.WorkspaceID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, strings.HasPrefix(claims.TokenID, "token-"))
}

func TestTokenService_Expired(t *testing.T) {
	svc, err := NewTokenService(testKey)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue("ws-1", "user-1", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_WrongKey(t *testing.T) {
	a, err := NewTokenService(testKey)
	require.NoError(t, err)
	b, err := NewTokenService(strings.Repeat("ab", 32))
	require.NoError(t, err)

	token, err := a.Issue("ws-1", "user-1", time.Hour)
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_Garbage(t *testing.T) {
	svc, err := NewTokenService(testKey)
	require.NoError(t, err)

	_, err = svc.Verify("not-a-token")
	assert.Error(t, err)
}

func TestTokenService_IssueRequiresScope(t *testing.T) {
	svc, err := NewTokenService(testKey)
	require.NoError(t, err)

	_, err = svc.Issue("", "user-1", time.Hour)
	assert.Error(t, err)
}

func TestNewTokenService_BadKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"too short", "abcd"},
		{"not hex", strings.Repeat("zz", 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.key)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyHexLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("short"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

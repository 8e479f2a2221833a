package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_RoleHelpers(t *testing.T) {
	anon := Session{}
	assert.True(t, anon.Anonymous())
	assert.False(t, anon.IsAdmin())
	assert.False(t, anon.Owns(""))

	user := Session{Token: "t", Role: RoleUser, UserID: "u1"}
	assert.False(t, user.Anonymous())
	assert.True(t, user.Owns("u1"))
	assert.False(t, user.Owns("u2"))
	assert.True(t, user.CanDelete("u1"))
	assert.False(t, user.CanDelete("u2"))

	admin := Session{Token: "t", Role: RoleAdmin, UserID: "a1"}
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CanDelete("u2"))

	// A role without a token is still anonymous.
	assert.True(t, Session{Role: RoleUser}.Anonymous())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")

	store, err := Open(path)
	require.NoError(t, err)
	_, ok := store.Get()
	assert.False(t, ok, "new store should be empty")

	want := Session{Token: "tok", Role: RoleAdmin, UserID: "u1", Avatar: "me.png"}
	require.NoError(t, store.Set(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok := reopened.Get()
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, reopened.Clear())
	_, ok = reopened.Get()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	assert.NoError(t, reopened.Clear())
}

func TestFileStore_CorruptFileIsAnonymous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("token = [\n"), 0o600))

	store, err := Open(path)
	require.NoError(t, err)
	assert.True(t, Current(store).Anonymous())
}

func TestOpen_EmptyPathFails(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	var store MemoryStore
	assert.True(t, Current(&store).Anonymous())

	require.NoError(t, store.Set(Session{Token: "t", Role: RoleUser}))
	assert.False(t, Current(&store).Anonymous())

	require.NoError(t, store.Clear())
	assert.True(t, Current(&store).Anonymous())
	assert.True(t, Current(nil).Anonymous())
}

func TestClaims_DecodesWithoutVerifying(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("some-secret"))
	require.NoError(t, err)

	claims, err := Claims(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(exp))

	_, err = Claims("not-a-jwt")
	assert.Error(t, err)
	_, err = Claims("")
	assert.Error(t, err)
}

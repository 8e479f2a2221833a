package app

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/seriesnet/internal/mockapi"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

func writeConfig(t *testing.T, dir, apiURL string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`api_url = %q
session_path = %q
log_file = %q
stale_time = "1m"
gc_time = "2m"
request_timeout = "3s"
`, apiURL, filepath.Join(dir, "session.toml"), filepath.Join(dir, "client.log"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSetup_WiresStoreAgainstBackend(t *testing.T) {
	t.Setenv("SERIESNET_API_URL", "")
	t.Setenv("SERIESNET_ASSET_URL", "")
	t.Setenv("SERIESNET_STALE_TIME", "")
	t.Setenv("SERIESNET_TIMEOUT", "")

	backend := mockapi.New(mockapi.Options{Secret: []byte("s"), BcryptCost: bcrypt.MinCost})
	require.NoError(t, backend.Seed(mockapi.Account{Username: "admin", Password: "admin"}))
	ts := httptest.NewServer(backend.Handler())
	defer ts.Close()

	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rt, err := setup(ctx, Options{
		ConfigPath: writeConfig(t, dir, ts.URL),
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
	})
	require.NoError(t, err)
	defer rt.close()

	assert.Equal(t, time.Minute, rt.cfg.StaleTime)
	assert.Equal(t, filepath.Join(dir, "client.log"), rt.logger.Path())
	assert.True(t, rt.store.Session().Anonymous())
	assert.Equal(t, "Nightfox", rt.prefs.Theme)

	posts, _, err := state.Load[[]seriesnet.Post](ctx, rt.store, rt.store.Feed(seriesnet.PostFilter{Page: 1}))
	require.NoError(t, err)
	assert.NotEmpty(t, posts)

	sess, err := rt.store.Login(ctx, seriesnet.Credentials{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin())

	_, err = os.Stat(filepath.Join(dir, "session.toml"))
	assert.NoError(t, err, "login persists the session file")
}

func TestSetup_APIURLOverride(t *testing.T) {
	t.Setenv("SERIESNET_API_URL", "")
	t.Setenv("SERIESNET_ASSET_URL", "")
	dir := t.TempDir()

	rt, err := setup(context.Background(), Options{
		ConfigPath: writeConfig(t, dir, "http://127.0.0.1:1"),
		APIURL:     "http://example.test:3000",
	})
	require.NoError(t, err)
	defer rt.close()

	assert.Equal(t, "http://example.test:3000", rt.cfg.APIURL)
	assert.Equal(t, "http://example.test:3000/postImg/a.png", rt.assets.PostImage("a.png"))
}

func TestSetup_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`stale_time = "soon"`), 0o644))

	_, err := setup(context.Background(), Options{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

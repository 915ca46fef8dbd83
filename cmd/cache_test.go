package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/azauth/pkg/tokencache"
)

// seedCacheFile writes one token for user@contoso.com to a new cache file.
func seedCacheFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	cache, err := tokencache.NewFileCache(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.BeforeAccess(ctx))
	cache.Store(tokencache.Key{
		Authority:     "https://login.microsoftonline.com/t1/",
		Resource:      "https://management.core.windows.net/",
		ClientID:      "client",
		UniqueID:      "U1",
		DisplayableID: "user@contoso.com",
	}, tokencache.Item{
		AccessToken:  "secret-access-token",
		RefreshToken: "secret-refresh-token",
		ExpiresOn:    time.Now().Add(time.Hour),
		TenantID:     "T1",
	})
	require.NoError(t, cache.AfterAccess(ctx))
	return path
}

func resetCacheFlags(t *testing.T) {
	t.Cleanup(func() {
		cachePath = ""
		cacheOutput = "table"
		cacheNoHeaders = false
		cacheYes = false
	})
}

func TestCacheList(t *testing.T) {
	resetCacheFlags(t)
	path := seedCacheFile(t)

	out, err := executeCommand(t, "cache", "list", "--config-path", t.TempDir(), "--cache-path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "user@contoso.com")
	assert.Contains(t, out, "Total:")
	assert.NotContains(t, out, "secret")
}

func TestCacheListJSON(t *testing.T) {
	resetCacheFlags(t)
	path := seedCacheFile(t)

	out, err := executeCommand(t, "cache", "list", "--config-path", t.TempDir(), "--cache-path", path, "-o", "json")
	require.NoError(t, err)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "user@contoso.com", entries[0]["displayableID"])
	assert.Equal(t, true, entries[0]["hasRefreshToken"])
	assert.NotContains(t, out, "secret")
}

func TestCacheListRejectsUnknownFormat(t *testing.T) {
	resetCacheFlags(t)
	_, err := executeCommand(t, "cache", "list", "--config-path", t.TempDir(), "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCacheClear(t *testing.T) {
	resetCacheFlags(t)
	path := seedCacheFile(t)

	_, err := executeCommand(t, "cache", "clear", "--config-path", t.TempDir(), "--cache-path", path)
	require.ErrorContains(t, err, "--yes")

	out, err := executeCommand(t, "cache", "clear", "--config-path", t.TempDir(), "--cache-path", path, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cached token(s)")

	cache, err := tokencache.NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.BeforeAccess(context.Background()))
	assert.Zero(t, cache.Count())
}

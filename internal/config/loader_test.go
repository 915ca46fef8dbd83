package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
	assert.True(t, config.ValidateAuthority)
	assert.Equal(t, 3, config.Cache.LockAttempts)
	assert.Equal(t, 10*time.Second, config.Cache.LockDelay)
	assert.Equal(t, 300*time.Second, config.Acquisition.CodeFreshness)
	assert.Equal(t, 30*time.Second, config.HTTP.Timeout)
}

func TestLoadConfigFile(t *testing.T) {
	dir := writeConfig(t, `
authority: https://login.microsoftonline.com/contoso.onmicrosoft.com
validateAuthority: false
clientID: my-client
webUI: prompt
redirectURI: urn:ietf:wg:oauth:2.0:oob
cache:
  path: /tmp/azauth/cache.json
  lockAttempts: 5
  lockDelay: 250ms
http:
  timeout: 1m
acquisition:
  codeFreshness: 0s
`)

	config, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://login.microsoftonline.com/contoso.onmicrosoft.com", config.Authority)
	assert.False(t, config.ValidateAuthority)
	assert.Equal(t, "my-client", config.ClientID)
	assert.Equal(t, WebUIPrompt, config.WebUI)
	assert.Equal(t, "/tmp/azauth/cache.json", config.Cache.Path)
	assert.Equal(t, 5, config.Cache.LockAttempts)
	assert.Equal(t, 250*time.Millisecond, config.Cache.LockDelay)
	assert.Equal(t, time.Minute, config.HTTP.Timeout)
	assert.Zero(t, config.Acquisition.CodeFreshness)
	assert.Equal(t, DefaultResource, config.Resource, "unset fields keep their defaults")
	assert.Equal(t, 5*time.Minute, config.Acquisition.ExpiryMargin)
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := writeConfig(t, "authority: [unterminated\n")
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "error loading config")
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := writeConfig(t, `
authority: http://login.microsoftonline.com/common
webUI: kiosk
cache:
  lockAttempts: 0
`)
	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'authority': must use scheme https")
	assert.Contains(t, err.Error(), "field 'webUI'")
	assert.Contains(t, err.Error(), "field 'cache.lockAttempts'")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("AZAUTH_CLIENT_ID", "env-client")
	t.Setenv("AZAUTH_VALIDATE_AUTHORITY", "false")
	t.Setenv("AZAUTH_LOCK_DELAY", "2s")
	t.Setenv("AZAUTH_REDIS_URL", "redis://localhost:6379/0")

	dir := writeConfig(t, "clientID: file-client\n")
	config, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-client", config.ClientID)
	assert.False(t, config.ValidateAuthority)
	assert.Equal(t, 2*time.Second, config.Cache.LockDelay)
	assert.Equal(t, "redis://localhost:6379/0", config.Cache.RedisURL)
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	env := map[string]string{
		"AZAUTH_LOCK_ATTEMPTS":      "many",
		"AZAUTH_HTTP_TIMEOUT":       "soon",
		"AZAUTH_VALIDATE_AUTHORITY": "perhaps",
		"AZAUTH_RESOURCE":           " https://graph.windows.net/ ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	config := GetDefaultConfig()
	err := applyEnv(&config, lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
	assert.Contains(t, err.Error(), "AZAUTH_LOCK_ATTEMPTS")
	assert.Contains(t, err.Error(), "AZAUTH_HTTP_TIMEOUT")
	assert.Contains(t, err.Error(), "AZAUTH_VALIDATE_AUTHORITY")
	assert.Equal(t, "https://graph.windows.net/", config.Resource)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AZAUTH_TEST_DOTENV=from-file\nAZAUTH_TEST_PRESET=from-file\n"), 0600))

	t.Setenv("AZAUTH_TEST_PRESET", "preset")
	t.Cleanup(func() { _ = os.Unsetenv("AZAUTH_TEST_DOTENV") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("AZAUTH_TEST_DOTENV"))
	assert.Equal(t, "preset", os.Getenv("AZAUTH_TEST_PRESET"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "azauth"), path)
}

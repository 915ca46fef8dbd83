package adal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAuthorizationResult(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		redirected string
		status     AuthorizationStatus
		code       string
		errCode    string
		errDesc    string
		state      string
	}{
		{
			name:       "code",
			redirected: "https://localhost/cb?code=abc&state=s1",
			status:     AuthorizationSuccess,
			code:       "abc",
			state:      "s1",
		},
		{
			name:       "parameter names ignore case",
			redirected: "https://localhost/cb?Code=abc&STATE=s1",
			status:     AuthorizationSuccess,
			code:       "abc",
			state:      "s1",
		},
		{
			name:       "escaped values",
			redirected: "urn:ietf:wg:oauth:2.0:oob?code=a%2Bb%3D&state=s1#fragment",
			status:     AuthorizationSuccess,
			code:       "a+b=",
			state:      "s1",
		},
		{
			name:       "error with description",
			redirected: "https://localhost/cb?error=access_denied&error_description=the+user+declined&state=s1",
			status:     AuthorizationError,
			errCode:    "access_denied",
			errDesc:    "the user declined",
			state:      "s1",
		},
		{
			name:       "legacy description name",
			redirected: "https://localhost/cb?Error=login_required&ErrorDescription=sign+in",
			status:     AuthorizationError,
			errCode:    "login_required",
			errDesc:    "sign in",
		},
		{
			name:       "neither code nor error",
			redirected: "https://localhost/cb?state=s1",
			status:     AuthorizationError,
			errCode:    CodeAuthorizationFailed,
			state:      "s1",
		},
		{
			name:       "no query",
			redirected: "https://localhost/cb",
			status:     AuthorizationError,
			errCode:    CodeAuthorizationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAuthorizationResult(tt.redirected, now)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.code, result.Code)
			assert.Equal(t, tt.errCode, result.Error)
			if tt.errDesc != "" {
				assert.Equal(t, tt.errDesc, result.ErrorDescription)
			}
			assert.Equal(t, tt.state, result.State)
			assert.Equal(t, now, result.IssuedAt)
		})
	}
}

func TestAuthorizationCodeCache(t *testing.T) {
	clock := newFakeClock()
	cache := NewAuthorizationCodeCache(DefaultCodeFreshness, clock.Now)
	key := newCodeCacheKey("https://login.microsoftonline.com/T1/", testClientID, testRedirectURI)

	_, ok := cache.get(key)
	assert.False(t, ok)

	cache.put(key, &AuthorizationResult{Status: AuthorizationError, Error: "access_denied", IssuedAt: clock.Now()})
	_, ok = cache.get(key)
	assert.False(t, ok, "failed authorizations are not cached")

	cache.put(key, &AuthorizationResult{Status: AuthorizationSuccess, Code: "abc", IssuedAt: clock.Now()})

	clock.Advance(299 * time.Second)
	got, ok := cache.get(newCodeCacheKey("HTTPS://LOGIN.MICROSOFTONLINE.COM/T1/", testClientID, testRedirectURI))
	assert.True(t, ok, "authority and client match ignoring case")
	assert.Equal(t, "abc", got.Code)

	_, ok = cache.get(newCodeCacheKey("https://login.microsoftonline.com/T1/", testClientID, "https://localhost/other"))
	assert.False(t, ok, "redirect URI is part of the key")

	clock.Advance(time.Second)
	_, ok = cache.get(key)
	assert.False(t, ok, "codes expire at the end of the window")

	cache.put(key, &AuthorizationResult{Status: AuthorizationSuccess, Code: "def", IssuedAt: clock.Now()})
	cache.remove(key)
	_, ok = cache.get(key)
	assert.False(t, ok)
}

func TestAuthorizationCodeCacheDisabled(t *testing.T) {
	cache := NewAuthorizationCodeCache(0, nil)
	key := newCodeCacheKey("https://login.microsoftonline.com/T1/", testClientID, testRedirectURI)

	cache.put(key, &AuthorizationResult{Status: AuthorizationSuccess, Code: "abc", IssuedAt: time.Now()})
	_, ok := cache.get(key)
	assert.False(t, ok)
}

package adal

import (
	"strings"
	"sync"
	"time"

	azstrings "github.com/giantswarm/azauth/pkg/strings"
	"github.com/giantswarm/azauth/pkg/urlutil"
)

// DefaultCodeFreshness is how long an authorization code is reused for further requests.
const DefaultCodeFreshness = 300 * time.Second

// AuthorizationStatus is the outcome of the browser part of the sign-in.
type AuthorizationStatus int

const (
	AuthorizationSuccess AuthorizationStatus = iota
	AuthorizationError
)

// AuthorizationResult is what the identity provider sent back to the redirect URI.
type AuthorizationResult struct {
	Status           AuthorizationStatus
	Code             string
	Error            string
	ErrorDescription string
	State            string
	IssuedAt         time.Time
}

// parseAuthorizationResult reads code or error from the query of the URL the
// browser was redirected to. Parameter names match case-insensitively.
func parseAuthorizationResult(redirected string, now time.Time) *AuthorizationResult {
	result := &AuthorizationResult{IssuedAt: now}

	query := ""
	if _, q, ok := strings.Cut(redirected, "?"); ok {
		query, _, _ = strings.Cut(q, "#")
	}
	params := urlutil.FormQueryString(query)

	result.State, _ = urlutil.GetFold(params, "state")

	if code, _ := urlutil.GetFold(params, "code"); !azstrings.IsBlank(code) {
		result.Status = AuthorizationSuccess
		result.Code = code
		return result
	}

	result.Status = AuthorizationError
	if e, _ := urlutil.GetFold(params, "error"); !azstrings.IsBlank(e) {
		result.Error = e
		if d, ok := urlutil.GetFold(params, "error_description"); ok {
			result.ErrorDescription = d
		} else {
			result.ErrorDescription, _ = urlutil.GetFold(params, "errordescription")
		}
		return result
	}

	result.Error = CodeAuthorizationFailed
	result.ErrorDescription = "the authorization server returned neither a code nor an error"
	return result
}

type codeCacheKey struct {
	authority   string
	clientID    string
	redirectURI string
}

// AuthorizationCodeCache remembers the last authorization code per authority,
// client and redirect URI for a bounded window so that tokens for several
// resources can be acquired with a single sign-in.
type AuthorizationCodeCache struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[codeCacheKey]*AuthorizationResult
}

// NewAuthorizationCodeCache creates a cache reusing codes for window.
func NewAuthorizationCodeCache(window time.Duration, now func() time.Time) *AuthorizationCodeCache {
	if now == nil {
		now = time.Now
	}
	return &AuthorizationCodeCache{
		window:  window,
		now:     now,
		entries: make(map[codeCacheKey]*AuthorizationResult),
	}
}

func newCodeCacheKey(authority, clientID, redirectURI string) codeCacheKey {
	return codeCacheKey{
		authority:   strings.ToLower(authority),
		clientID:    strings.ToLower(clientID),
		redirectURI: redirectURI,
	}
}

// get returns a successful result issued within the window.
func (c *AuthorizationCodeCache) get(key codeCacheKey) (*AuthorizationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(result.IssuedAt) >= c.window {
		delete(c.entries, key)
		return nil, false
	}
	return result, true
}

func (c *AuthorizationCodeCache) put(key codeCacheKey, result *AuthorizationResult) {
	if result == nil || result.Status != AuthorizationSuccess || c.window <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
}

func (c *AuthorizationCodeCache) remove(key codeCacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

package adal

import (
	"context"
	"net/url"
)

// silentRequest only uses the cache and refresh tokens found in it.
type silentRequest struct{}

func (silentRequest) name() string                { return "silent" }
func (silentRequest) supportsWorkplaceJoin() bool { return true }
func (silentRequest) allowsCacheLookup() bool     { return true }
func (silentRequest) storesResult() bool          { return true }

func (silentRequest) validate(*handler, *AuthenticationResult) error { return nil }

func (silentRequest) requestToken(context.Context, *handler) (*AuthenticationResult, error) {
	return nil, protocolError(CodeFailedToAcquireTokenSilently,
		"no usable token was found in the cache; acquire a token interactively")
}

// refreshTokenRequest redeems a refresh token supplied by the caller.
type refreshTokenRequest struct {
	refreshToken string
}

func (r *refreshTokenRequest) name() string                { return "refresh_token" }
func (r *refreshTokenRequest) supportsWorkplaceJoin() bool { return false }
func (r *refreshTokenRequest) allowsCacheLookup() bool     { return false }
func (r *refreshTokenRequest) storesResult() bool          { return true }

func (r *refreshTokenRequest) validate(*handler, *AuthenticationResult) error { return nil }

func (r *refreshTokenRequest) requestToken(ctx context.Context, h *handler) (*AuthenticationResult, error) {
	return h.refresh(ctx, r.refreshToken)
}

// authorizationCodeRequest redeems an authorization code obtained by the caller.
type authorizationCodeRequest struct {
	code        string
	redirectURI string
}

func (r *authorizationCodeRequest) name() string                { return "authorization_code" }
func (r *authorizationCodeRequest) supportsWorkplaceJoin() bool { return true }
func (r *authorizationCodeRequest) allowsCacheLookup() bool     { return false }
func (r *authorizationCodeRequest) storesResult() bool          { return true }

func (r *authorizationCodeRequest) validate(*handler, *AuthenticationResult) error { return nil }

func (r *authorizationCodeRequest) requestToken(ctx context.Context, h *handler) (*AuthenticationResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", r.code)
	form.Set("redirect_uri", r.redirectURI)
	if h.resource != "" {
		form.Set("resource", h.resource)
	}
	h.clientKey.addToForm(form)
	return h.sendTokenRequest(ctx, form, "")
}

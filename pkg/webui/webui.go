package webui

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrCanceled is returned when the user abandons the sign-in.
var ErrCanceled = errors.New("authentication canceled by user")

// WebUI drives the interactive part of the authorization code flow.
//
// Authenticate shows requestURI to the user and returns the full URL the
// browser was redirected to once it starts with redirectURI. Implementations
// return ErrCanceled when the user gives up and ctx.Err() when ctx is done.
type WebUI interface {
	Authenticate(ctx context.Context, requestURI, redirectURI string) (string, error)
}

// SilentWebUI is implemented by web UIs that can run a prompt=none request
// without showing anything to the user.
type SilentWebUI interface {
	WebUI
	AuthenticateSilent(ctx context.Context, requestURI, redirectURI string) (string, error)
}

// Default returns the loopback browser UI for http://localhost redirect URIs and
// the paste prompt for anything else.
func Default(redirectURI string) WebUI {
	if IsLoopbackRedirect(redirectURI) {
		return NewLoopback()
	}
	return NewPrompt()
}

// IsLoopbackRedirect reports whether redirectURI points at this machine over plain http.
func IsLoopbackRedirect(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil || !strings.EqualFold(u.Scheme, "http") {
		return false
	}
	switch strings.ToLower(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

// HasRedirectPrefix reports whether navigated has reached redirectURI. Scheme
// and host compare case-insensitively; the path must equal the redirect path or
// continue it at a "/" boundary.
func HasRedirectPrefix(navigated, redirectURI string) bool {
	n, err := url.Parse(navigated)
	if err != nil {
		return false
	}
	r, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	if !strings.EqualFold(n.Scheme, r.Scheme) || !strings.EqualFold(n.Host, r.Host) {
		return false
	}
	base := strings.TrimSuffix(r.Path, "/")
	if base == "" {
		return true
	}
	return n.Path == base || strings.HasPrefix(n.Path, base+"/")
}

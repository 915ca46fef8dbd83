package adal

import (
	"fmt"
	"strings"
)

// PromptBehavior controls when the user is asked to sign in.
type PromptBehavior int

const (
	// PromptAuto prompts only when no cached or refreshable token exists.
	PromptAuto PromptBehavior = iota
	// PromptAlways ignores the cache and forces credentials to be entered.
	PromptAlways
	// PromptNever never shows a sign-in page; it fails with login_required instead.
	PromptNever
	// PromptRefreshSession ignores the cache and asks the service to re-evaluate consent.
	PromptRefreshSession
)

func (p PromptBehavior) String() string {
	switch p {
	case PromptAuto:
		return "auto"
	case PromptAlways:
		return "always"
	case PromptNever:
		return "never"
	case PromptRefreshSession:
		return "refresh_session"
	default:
		return "unknown"
	}
}

// ParsePromptBehavior parses "auto", "always", "never" or "refresh_session".
func ParsePromptBehavior(s string) (PromptBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return PromptAuto, nil
	case "always", "login":
		return PromptAlways, nil
	case "never", "none":
		return PromptNever, nil
	case "refresh_session", "refreshsession", "refresh-session":
		return PromptRefreshSession, nil
	default:
		return PromptAuto, fmt.Errorf("unknown prompt behavior %q", s)
	}
}

// queryValue is the authorize request's prompt parameter.
func (p PromptBehavior) queryValue() string {
	switch p {
	case PromptAlways:
		return "login"
	case PromptNever:
		return "none"
	case PromptRefreshSession:
		return "refresh_session"
	default:
		return ""
	}
}

// skipsCache reports whether a fresh interactive sign-in is forced.
func (p PromptBehavior) skipsCache() bool {
	return p == PromptAlways || p == PromptRefreshSession
}

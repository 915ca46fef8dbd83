package cli

import (
	"errors"

	"github.com/giantswarm/azauth/pkg/adal"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid arguments or configuration).
	ExitCodeError = 1
	// ExitCodeInteractionRequired indicates a token cannot be obtained without signing in.
	ExitCodeInteractionRequired = 2
	// ExitCodeAuthFailed indicates the acquisition failed.
	ExitCodeAuthFailed = 3
	// ExitCodeCanceled indicates the sign-in was abandoned.
	ExitCodeCanceled = 4
)

// ExitCode determines the exit code for err. This provides semantic exit codes
// for scripting and automation.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var e *adal.Error
	if !errors.As(err, &e) {
		return ExitCodeError
	}

	switch {
	case e.Kind == adal.KindCanceled:
		return ExitCodeCanceled
	case e.Recoverable():
		return ExitCodeInteractionRequired
	case e.Kind == adal.KindConfiguration:
		return ExitCodeError
	default:
		return ExitCodeAuthFailed
	}
}

// Hint returns advice for err, or "" when there is none.
func Hint(err error) string {
	var e *adal.Error
	if !errors.As(err, &e) {
		return ""
	}
	switch {
	case e.Recoverable():
		return "Run `azauth token` without --prompt never to sign in interactively."
	case e.Code == adal.CodeMultipleTokensDetected:
		return "Several users are cached; pick one with --user."
	case e.Kind == adal.KindCacheIO:
		return "Another process may hold the token cache lock; try again or check the cache path."
	default:
		return ""
	}
}

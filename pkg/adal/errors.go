package adal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/azauth/internal/authority"
	"github.com/giantswarm/azauth/internal/transport"
	"github.com/giantswarm/azauth/pkg/tokencache"
	"github.com/giantswarm/azauth/pkg/webui"
)

// ErrorKind tags an Error so callers can branch without inspecting error types.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfiguration is an invalid authority, client, redirect URI or user; never retried.
	KindConfiguration
	// KindProtocol is an explicit OAuth error from the identity provider.
	KindProtocol
	// KindTransport is a network failure or a malformed response.
	KindTransport
	// KindCanceled means the user or the caller abandoned the sign-in.
	KindCanceled
	// KindIdentityMismatch means the signed-in user is not the one that was asked for.
	KindIdentityMismatch
	// KindCacheIO is a failure to lock, read or write the persisted token cache.
	KindCacheIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindCanceled:
		return "canceled"
	case KindIdentityMismatch:
		return "identity_mismatch"
	case KindCacheIO:
		return "cache_io"
	default:
		return "unknown"
	}
}

// Error codes produced locally. Protocol errors otherwise carry the server's code.
const (
	CodeInvalidArgument              = "invalid_argument"
	CodeUnsupportedAuthorityType     = "unsupported_authority_type"
	CodeMultipleTokensDetected       = "multiple_tokens_detected"
	CodeAuthorizationFailed          = "authorization_failed"
	CodeStateMismatch                = "state_mismatch"
	CodeFailedToAcquireTokenSilently = "failed_to_acquire_token_silently"
	CodeUserMismatch                 = "user_mismatch"
	CodeAuthenticationCanceled       = "authentication_canceled"
	CodeTransportFailure             = "transport_failure"
	CodeCacheIO                      = "token_cache_io"

	CodeInvalidGrant        = "invalid_grant"
	CodeInteractionRequired = "interaction_required"
	CodeLoginRequired       = "login_required"
	CodeConsentRequired     = "consent_required"
)

var recoverableCodes = map[string]bool{
	CodeInvalidGrant:                 true,
	CodeInteractionRequired:          true,
	CodeLoginRequired:                true,
	CodeConsentRequired:              true,
	CodeFailedToAcquireTokenSilently: true,
}

// Error is returned by every AuthContext operation.
type Error struct {
	Kind        ErrorKind
	Code        string
	Description string

	// StatusCode and ErrorCodes are set for protocol errors returned by an endpoint.
	StatusCode int
	ErrorCodes []int

	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil && e.Description == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the error can be resolved by prompting the user,
// e.g. an expired grant or a silent request that found no usable token.
func (e *Error) Recoverable() bool {
	return e.Kind == KindProtocol && recoverableCodes[e.Code]
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsCanceled reports whether err is a cancellation.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled
}

func configError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Code: code, Description: fmt.Sprintf(format, args...)}
}

func protocolError(code, description string) *Error {
	return &Error{Kind: KindProtocol, Code: code, Description: description}
}

// classify maps errors from the lower layers onto an *Error. It is the only place
// that decides the kind of a failure.
func classify(err error, callState transport.CallState) *Error {
	if err == nil {
		return nil
	}

	correlationID := callState.CorrelationID.String()

	var e *Error
	if errors.As(err, &e) {
		if e.CorrelationID == "" {
			e.CorrelationID = correlationID
		}
		return e
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, webui.ErrCanceled) {
		return &Error{Kind: KindCanceled, Code: CodeAuthenticationCanceled, CorrelationID: correlationID, Err: err}
	}

	var authErr *authority.Error
	if errors.As(err, &authErr) {
		return &Error{Kind: KindConfiguration, Code: authErr.Code, Description: authErr.Message, CorrelationID: correlationID, Err: err}
	}

	var protoErr *transport.ProtocolError
	if errors.As(err, &protoErr) {
		id := protoErr.CorrelationID
		if id == "" {
			id = correlationID
		}
		return &Error{
			Kind:          KindProtocol,
			Code:          protoErr.Code,
			Description:   protoErr.Description,
			StatusCode:    protoErr.StatusCode,
			ErrorCodes:    protoErr.ErrorCodes,
			CorrelationID: id,
			Err:           err,
		}
	}

	var ioErr *tokencache.IOError
	if errors.As(err, &ioErr) {
		return &Error{Kind: KindCacheIO, Code: CodeCacheIO, CorrelationID: correlationID, Err: err}
	}

	if errors.Is(err, tokencache.ErrMultipleTokens) {
		return &Error{
			Kind:          KindConfiguration,
			Code:          CodeMultipleTokensDetected,
			Description:   "more than one cached token matches; specify a user",
			CorrelationID: correlationID,
			Err:           err,
		}
	}

	return &Error{Kind: KindTransport, Code: CodeTransportFailure, CorrelationID: correlationID, Err: err}
}

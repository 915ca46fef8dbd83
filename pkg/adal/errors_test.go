package adal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/azauth/internal/authority"
	"github.com/giantswarm/azauth/internal/transport"
	"github.com/giantswarm/azauth/pkg/tokencache"
	"github.com/giantswarm/azauth/pkg/webui"
)

func TestClassify(t *testing.T) {
	callState := transport.NewCallState(uuid.MustParse("2b0e8a0e-2f4c-4b0a-9a4e-6f1d2c3b4a5e"))

	_, authErr := authority.New("http://login.microsoftonline.com/common", false)
	require.Error(t, authErr)

	tests := []struct {
		name string
		err  error
		kind ErrorKind
		code string
	}{
		{"context canceled", fmt.Errorf("waiting: %w", context.Canceled), KindCanceled, CodeAuthenticationCanceled},
		{"web ui canceled", webui.ErrCanceled, KindCanceled, CodeAuthenticationCanceled},
		{"authority", authErr, KindConfiguration, authority.CodeInvalidAuthority},
		{"protocol", &transport.ProtocolError{StatusCode: 400, Code: "invalid_grant", Description: "expired"}, KindProtocol, "invalid_grant"},
		{"cache io", &tokencache.IOError{Op: "write", Path: "/tmp/cache", Err: tokencache.ErrLockTimeout}, KindCacheIO, CodeCacheIO},
		{"ambiguous cache", fmt.Errorf("%w: 2 entries", tokencache.ErrMultipleTokens), KindConfiguration, CodeMultipleTokensDetected},
		{"malformed", fmt.Errorf("%w: eof", transport.ErrMalformedResponse), KindTransport, CodeTransportFailure},
		{"status", &transport.StatusError{StatusCode: 503}, KindTransport, CodeTransportFailure},
		{"deadline", context.DeadlineExceeded, KindTransport, CodeTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, callState)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, callState.CorrelationID.String(), got.CorrelationID)
			assert.Equal(t, tt.kind, KindOf(got))
		})
	}

	assert.Nil(t, classify(nil, callState))
}

func TestClassifyKeepsExistingError(t *testing.T) {
	callState := transport.NewCallState(uuid.Nil)
	original := protocolError(CodeStateMismatch, "state differs")

	got := classify(fmt.Errorf("wrapped: %w", original), callState)
	assert.Same(t, original, got)
	assert.Equal(t, callState.CorrelationID.String(), got.CorrelationID)
}

func TestClassifyPrefersServerCorrelationID(t *testing.T) {
	got := classify(&transport.ProtocolError{Code: "invalid_grant", CorrelationID: "server-id", ErrorCodes: []int{70008}}, transport.NewCallState(uuid.Nil))
	assert.Equal(t, "server-id", got.CorrelationID)
	assert.Equal(t, []int{70008}, got.ErrorCodes)
}

func TestErrorRecoverable(t *testing.T) {
	assert.True(t, protocolError(CodeInvalidGrant, "").Recoverable())
	assert.True(t, protocolError(CodeInteractionRequired, "").Recoverable())
	assert.True(t, protocolError(CodeFailedToAcquireTokenSilently, "").Recoverable())
	assert.False(t, protocolError("invalid_client", "").Recoverable())
	assert.False(t, configError(CodeInvalidArgument, "bad").Recoverable())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "protocol error: invalid_grant: expired", protocolError(CodeInvalidGrant, "expired").Error())

	err := &Error{Kind: KindTransport, Code: CodeTransportFailure, Err: errors.New("connection refused")}
	assert.Equal(t, "transport error: transport_failure: connection refused", err.Error())
	assert.True(t, errors.Is(err, err.Err))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsCanceled(errors.New("plain")))
	assert.True(t, IsCanceled(&Error{Kind: KindCanceled}))
	assert.Equal(t, "identity_mismatch", KindIdentityMismatch.String())
	assert.Equal(t, "unknown", ErrorKind(42).String())
}

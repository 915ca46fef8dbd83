package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/azauth/pkg/adal"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitCodeSuccess},
		{"plain error", errors.New("boom"), ExitCodeError},
		{"configuration", &adal.Error{Kind: adal.KindConfiguration, Code: adal.CodeInvalidArgument}, ExitCodeError},
		{"canceled", &adal.Error{Kind: adal.KindCanceled, Code: adal.CodeAuthenticationCanceled}, ExitCodeCanceled},
		{"login required", &adal.Error{Kind: adal.KindProtocol, Code: adal.CodeLoginRequired}, ExitCodeInteractionRequired},
		{"silent miss", &adal.Error{Kind: adal.KindProtocol, Code: adal.CodeFailedToAcquireTokenSilently}, ExitCodeInteractionRequired},
		{"protocol", &adal.Error{Kind: adal.KindProtocol, Code: "invalid_client"}, ExitCodeAuthFailed},
		{"transport", &adal.Error{Kind: adal.KindTransport, Code: adal.CodeTransportFailure}, ExitCodeAuthFailed},
		{"user mismatch", &adal.Error{Kind: adal.KindIdentityMismatch, Code: adal.CodeUserMismatch}, ExitCodeAuthFailed},
		{"cache io", &adal.Error{Kind: adal.KindCacheIO, Code: adal.CodeCacheIO}, ExitCodeAuthFailed},
		{"wrapped", fmt.Errorf("token: %w", &adal.Error{Kind: adal.KindCanceled}), ExitCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestHint(t *testing.T) {
	assert.Empty(t, Hint(errors.New("boom")))
	assert.Contains(t, Hint(&adal.Error{Kind: adal.KindProtocol, Code: adal.CodeLoginRequired}), "--prompt never")
	assert.Contains(t, Hint(&adal.Error{Kind: adal.KindProtocol, Code: adal.CodeMultipleTokensDetected}), "--user")
	assert.Contains(t, Hint(&adal.Error{Kind: adal.KindCacheIO}), "lock")
	assert.Empty(t, Hint(&adal.Error{Kind: adal.KindTransport}))
}

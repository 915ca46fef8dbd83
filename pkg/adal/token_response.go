package adal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/azauth/internal/transport"
)

// flexInt decodes a JSON number or a string holding one. Empty strings and null decode to zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some endpoints send fractional seconds.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %s", string(data))
		}
		n = int64(fl)
	}
	*f = flexInt(n)
	return nil
}

// tokenResponse is the JSON body of a successful token endpoint call. Error
// bodies are turned into *transport.ProtocolError before decoding.
type tokenResponse struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	Resource     string  `json:"resource"`
	IDToken      string  `json:"id_token"`
	ExpiresIn    flexInt `json:"expires_in"`
	ExpiresOn    flexInt `json:"expires_on"`
	NotBefore    flexInt `json:"not_before"`

	CorrelationID string `json:"correlation_id"`
}

var _ json.Unmarshaler = (*flexInt)(nil)

// toResult builds the result for a response received at now. requestRefreshToken
// is the refresh token that was redeemed, if any.
func (r *tokenResponse) toResult(now time.Time, requestRefreshToken string) (*AuthenticationResult, error) {
	if r.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", transport.ErrMalformedResponse)
	}

	now = now.UTC().Truncate(time.Second)

	var expiresOn time.Time
	switch {
	case r.ExpiresIn > 0:
		expiresOn = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	case r.ExpiresOn > 0:
		expiresOn = time.Unix(int64(r.ExpiresOn), 0).UTC()
	default:
		expiresOn = now
	}

	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	result := &AuthenticationResult{
		AccessTokenType: tokenType,
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		ExpiresOn:       expiresOn,
		IDToken:         r.IDToken,
	}

	if r.RefreshToken == "" && requestRefreshToken != "" {
		result.RefreshToken = requestRefreshToken
		result.IsMultipleResourceRefreshToken = false
	} else {
		result.IsMultipleResourceRefreshToken = r.Resource != "" && r.RefreshToken != ""
	}

	if claims := parseIDToken(r.IDToken); claims != nil {
		result.TenantID = claims.TenantID
		result.UserInfo = claims.userInfo(now)
	}

	return result, nil
}

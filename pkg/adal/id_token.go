package adal

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

type idTokenClaims struct {
	ObjectID           string  `json:"oid"`
	Subject            string  `json:"sub"`
	UPN                string  `json:"upn"`
	Email              string  `json:"email"`
	GivenName          string  `json:"given_name"`
	FamilyName         string  `json:"family_name"`
	IdentityProvider   string  `json:"idp"`
	Issuer             string  `json:"iss"`
	TenantID           string  `json:"tid"`
	PasswordExpiration flexInt `json:"pwd_exp"`
	PasswordChangeURL  string  `json:"pwd_url"`
}

// parseIDToken decodes the claims of an unsigned id token "header.payload[.]".
// Trailing empty segments are dropped; anything that is not then exactly two
// segments, or whose payload is not base64 JSON, yields nil.
func parseIDToken(raw string) *idTokenClaims {
	if raw == "" {
		return nil
	}

	segments := strings.Split(raw, ".")
	for len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) != 2 {
		return nil
	}

	payload, ok := decodeSegment(segments[1])
	if !ok {
		return nil
	}

	var claims idTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// decodeSegment accepts base64url or standard base64, padded or not.
func decodeSegment(s string) ([]byte, bool) {
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *idTokenClaims) userInfo(now time.Time) *UserInfo {
	info := &UserInfo{
		UniqueID:          azstrings.FirstNonBlank(c.ObjectID, c.Subject),
		DisplayableID:     azstrings.FirstNonBlank(c.UPN, c.Email),
		GivenName:         c.GivenName,
		FamilyName:        c.FamilyName,
		IdentityProvider:  azstrings.FirstNonBlank(c.IdentityProvider, c.Issuer),
		PasswordChangeURL: c.PasswordChangeURL,
	}
	if c.PasswordExpiration > 0 {
		info.PasswordExpiresOn = now.Add(time.Duration(c.PasswordExpiration) * time.Second)
	}
	return info
}

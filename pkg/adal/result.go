package adal

import (
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/azauth/pkg/tokencache"
)

// UserInfo describes the user a token was issued to, as far as the id token tells.
type UserInfo struct {
	UniqueID          string
	DisplayableID     string
	GivenName         string
	FamilyName        string
	IdentityProvider  string
	PasswordExpiresOn time.Time
	PasswordChangeURL string
}

// AuthenticationResult is a successfully acquired token.
type AuthenticationResult struct {
	AccessTokenType string
	AccessToken     string
	RefreshToken    string

	// ExpiresOn is the absolute expiry in UTC with second precision.
	ExpiresOn time.Time

	TenantID string
	UserInfo *UserInfo
	IDToken  string

	IsMultipleResourceRefreshToken bool
}

// CreateAuthorizationHeader returns the value of an Authorization header carrying the token.
func (r *AuthenticationResult) CreateAuthorizationHeader() string {
	return "Bearer " + r.AccessToken
}

// OAuth2Token converts r for use with golang.org/x/oauth2 clients. The id token
// is available as the "id_token" extra.
func (r *AuthenticationResult) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.AccessTokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresOn,
	}
	if r.IDToken != "" || r.TenantID != "" {
		token = token.WithExtra(map[string]interface{}{
			"id_token":  r.IDToken,
			"tenant_id": r.TenantID,
		})
	}
	return token
}

func (r *AuthenticationResult) toCacheItem() tokencache.Item {
	item := tokencache.Item{
		AccessToken:                    r.AccessToken,
		AccessTokenType:                r.AccessTokenType,
		RefreshToken:                   r.RefreshToken,
		IDToken:                        r.IDToken,
		ExpiresOn:                      r.ExpiresOn,
		TenantID:                       r.TenantID,
		IsMultipleResourceRefreshToken: r.IsMultipleResourceRefreshToken,
	}
	if u := r.UserInfo; u != nil {
		item.UniqueID = u.UniqueID
		item.DisplayableID = u.DisplayableID
		item.GivenName = u.GivenName
		item.FamilyName = u.FamilyName
		item.IdentityProvider = u.IdentityProvider
		item.PasswordExpiresOn = u.PasswordExpiresOn
		item.PasswordChangeURL = u.PasswordChangeURL
	}
	return item
}

func resultFromCacheItem(item tokencache.Item) *AuthenticationResult {
	r := &AuthenticationResult{
		AccessTokenType:                item.AccessTokenType,
		AccessToken:                    item.AccessToken,
		RefreshToken:                   item.RefreshToken,
		ExpiresOn:                      item.ExpiresOn,
		TenantID:                       item.TenantID,
		IDToken:                        item.IDToken,
		IsMultipleResourceRefreshToken: item.IsMultipleResourceRefreshToken,
	}
	if item.UniqueID != "" || item.DisplayableID != "" {
		r.UserInfo = &UserInfo{
			UniqueID:          item.UniqueID,
			DisplayableID:     item.DisplayableID,
			GivenName:         item.GivenName,
			FamilyName:        item.FamilyName,
			IdentityProvider:  item.IdentityProvider,
			PasswordExpiresOn: item.PasswordExpiresOn,
			PasswordChangeURL: item.PasswordChangeURL,
		}
	}
	return r
}

package tokencache

import "time"

// Item is the value stored for a Key. It is replaced wholesale on every store.
type Item struct {
	AccessToken     string    `json:"access_token"`
	AccessTokenType string    `json:"access_token_type"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	IDToken         string    `json:"id_token,omitempty"`
	ExpiresOn       time.Time `json:"expires_on"`
	TenantID        string    `json:"tenant_id,omitempty"`

	UniqueID          string    `json:"unique_id,omitempty"`
	DisplayableID     string    `json:"displayable_id,omitempty"`
	GivenName         string    `json:"given_name,omitempty"`
	FamilyName        string    `json:"family_name,omitempty"`
	IdentityProvider  string    `json:"identity_provider,omitempty"`
	PasswordExpiresOn time.Time `json:"password_expires_on,omitzero"`
	PasswordChangeURL string    `json:"password_change_url,omitempty"`

	IsMultipleResourceRefreshToken bool `json:"is_multiple_resource_refresh_token,omitempty"`
}

// Entry is a key and its item as returned by Items and Lookup.
type Entry struct {
	Key  Key  `json:"key"`
	Item Item `json:"item"`
}

// ExpiresWithin reports whether the access token expires before now+margin.
func (i Item) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !i.ExpiresOn.After(now.Add(margin))
}

package formatting

import (
	"time"

	"github.com/giantswarm/azauth/pkg/adal"
	"github.com/giantswarm/azauth/pkg/tokencache"
)

// CacheEntry is the printable view of a cached token. It never carries token values.
type CacheEntry struct {
	Authority       string    `json:"authority" yaml:"authority"`
	Resource        string    `json:"resource" yaml:"resource"`
	ClientID        string    `json:"clientID" yaml:"clientID"`
	Subject         string    `json:"subject" yaml:"subject"`
	UniqueID        string    `json:"uniqueID,omitempty" yaml:"uniqueID,omitempty"`
	DisplayableID   string    `json:"displayableID,omitempty" yaml:"displayableID,omitempty"`
	TenantID        string    `json:"tenantID,omitempty" yaml:"tenantID,omitempty"`
	ExpiresOn       time.Time `json:"expiresOn" yaml:"expiresOn"`
	Expired         bool      `json:"expired" yaml:"expired"`
	HasRefreshToken bool      `json:"hasRefreshToken" yaml:"hasRefreshToken"`
	MultiResource   bool      `json:"multiResource" yaml:"multiResource"`
}

// NewCacheEntries converts cache entries, judging expiry against now.
func NewCacheEntries(entries []tokencache.Entry, now time.Time) []CacheEntry {
	out := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, CacheEntry{
			Authority:       e.Key.Authority,
			Resource:        e.Key.Resource,
			ClientID:        e.Key.ClientID,
			Subject:         e.Key.SubjectType.String(),
			UniqueID:        e.Key.UniqueID,
			DisplayableID:   e.Key.DisplayableID,
			TenantID:        e.Item.TenantID,
			ExpiresOn:       e.Item.ExpiresOn,
			Expired:         !e.Item.ExpiresOn.After(now),
			HasRefreshToken: e.Item.RefreshToken != "",
			MultiResource:   e.Item.IsMultipleResourceRefreshToken,
		})
	}
	return out
}

// TokenOutput is what `azauth token --output json` prints.
type TokenOutput struct {
	TokenType     string    `json:"tokenType" yaml:"tokenType"`
	AccessToken   string    `json:"accessToken" yaml:"accessToken"`
	ExpiresOn     time.Time `json:"expiresOn" yaml:"expiresOn"`
	TenantID      string    `json:"tenantID,omitempty" yaml:"tenantID,omitempty"`
	UniqueID      string    `json:"uniqueID,omitempty" yaml:"uniqueID,omitempty"`
	DisplayableID string    `json:"displayableID,omitempty" yaml:"displayableID,omitempty"`
	Authority     string    `json:"authority" yaml:"authority"`
	Resource      string    `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// NewTokenOutput converts an acquisition result.
func NewTokenOutput(result *adal.AuthenticationResult, authority, resource string) TokenOutput {
	out := TokenOutput{
		TokenType:   result.AccessTokenType,
		AccessToken: result.AccessToken,
		ExpiresOn:   result.ExpiresOn,
		TenantID:    result.TenantID,
		Authority:   authority,
		Resource:    resource,
	}
	if result.UserInfo != nil {
		out.UniqueID = result.UserInfo.UniqueID
		out.DisplayableID = result.UserInfo.DisplayableID
	}
	return out
}

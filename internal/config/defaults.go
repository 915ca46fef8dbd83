package config

import (
	"github.com/giantswarm/azauth/internal/transport"
	"github.com/giantswarm/azauth/pkg/adal"
	"github.com/giantswarm/azauth/pkg/tokencache"
)

const (
	// DefaultAuthority is the multi-tenant Azure AD authority.
	DefaultAuthority = "https://login.microsoftonline.com/common"

	// DefaultClientID is the well-known public client of the Azure CLI.
	DefaultClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

	// DefaultResource is the Azure Resource Manager resource.
	DefaultResource = "https://management.core.windows.net/"

	// DefaultRedirectURI is a loopback redirect handled by the built-in listener.
	DefaultRedirectURI = "http://localhost:8400/"
)

// GetDefaultConfig returns the configuration used when nothing is configured.
func GetDefaultConfig() Config {
	return Config{
		Authority:         DefaultAuthority,
		ValidateAuthority: true,
		ClientID:          DefaultClientID,
		Resource:          DefaultResource,
		RedirectURI:       DefaultRedirectURI,
		WebUI:             WebUIAuto,
		Cache: CacheConfig{
			RedisKey:     tokencache.DefaultRedisKey,
			LockAttempts: tokencache.DefaultLockAttempts,
			LockDelay:    tokencache.DefaultLockDelay,
		},
		HTTP: HTTPConfig{
			Timeout: transport.DefaultHTTPTimeout,
		},
		Acquisition: AcquisitionConfig{
			CodeFreshness: adal.DefaultCodeFreshness,
			ExpiryMargin:  adal.DefaultExpiryMargin,
		},
	}
}

package config

import "time"

// Config is the top-level configuration structure for azauth.
type Config struct {
	// Authority is the authority URL tokens are acquired from.
	Authority string `yaml:"authority,omitempty"`
	// ValidateAuthority checks the authority host against the trusted hosts or instance discovery.
	ValidateAuthority bool `yaml:"validateAuthority"`
	// ClientID is the public client application id.
	ClientID string `yaml:"clientID,omitempty"`
	// Resource is the default resource tokens are requested for.
	Resource string `yaml:"resource,omitempty"`
	// RedirectURI is where the authorization server sends the browser back to.
	RedirectURI string `yaml:"redirectURI,omitempty"`
	// WebUI selects the interactive surface: auto, loopback or prompt.
	WebUI string `yaml:"webUI,omitempty"`

	Cache       CacheConfig       `yaml:"cache"`
	HTTP        HTTPConfig        `yaml:"http"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
}

// CacheConfig configures the persisted token cache.
type CacheConfig struct {
	Path         string        `yaml:"path,omitempty"`         // Token cache file (default: ~/.config/azauth/tokencache.json)
	RedisURL     string        `yaml:"redisURL,omitempty"`     // When set, the cache is kept in Redis instead of a file
	RedisKey     string        `yaml:"redisKey,omitempty"`     // Redis key holding the cache (default: azauth:tokencache)
	LockAttempts int           `yaml:"lockAttempts,omitempty"` // Attempts to take the cache lock (default: 3)
	LockDelay    time.Duration `yaml:"lockDelay,omitempty"`    // Delay between lock attempts (default: 10s)
}

// HTTPConfig configures calls to the authority.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"` // Per request timeout (default: 30s)
}

// AcquisitionConfig tunes token acquisition.
type AcquisitionConfig struct {
	CodeFreshness time.Duration `yaml:"codeFreshness"`          // How long an authorization code is reused (default: 300s, 0 disables)
	ExpiryMargin  time.Duration `yaml:"expiryMargin,omitempty"` // Refresh cached tokens this long before they expire (default: 5m)
}

// Web UI kinds.
const (
	WebUIAuto     = "auto"
	WebUILoopback = "loopback"
	WebUIPrompt   = "prompt"
)

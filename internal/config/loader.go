package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/azauth/pkg/logging"
)

const (
	userConfigDir  = ".config/azauth"
	configFileName = "config.yaml"
	dotEnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "AZAUTH_"
)

// DefaultConfigPath returns ~/.config/azauth.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the defaults, then
// applies AZAUTH_* environment overrides and validates the result. A .env file
// in the working directory is loaded first; it never replaces variables that
// are already set.
func LoadConfig(configPath string) (Config, error) {
	if err := loadDotEnv(dotEnvFileName); err != nil {
		return Config{}, err
	}

	config := GetDefaultConfig()

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := applyEnv(&config, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	logging.Debug("ConfigLoader", "Loaded environment from %s", path)
	return nil
}

// applyEnv overrides config with AZAUTH_* variables. All unparsable values are reported together.
func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	var result *multierror.Error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("AUTHORITY", &config.Authority)
	boolean("VALIDATE_AUTHORITY", &config.ValidateAuthority)
	str("CLIENT_ID", &config.ClientID)
	str("RESOURCE", &config.Resource)
	str("REDIRECT_URI", &config.RedirectURI)
	str("WEB_UI", &config.WebUI)
	str("CACHE_PATH", &config.Cache.Path)
	str("REDIS_URL", &config.Cache.RedisURL)
	str("REDIS_KEY", &config.Cache.RedisKey)
	integer("LOCK_ATTEMPTS", &config.Cache.LockAttempts)
	duration("LOCK_DELAY", &config.Cache.LockDelay)
	duration("HTTP_TIMEOUT", &config.HTTP.Timeout)
	duration("CODE_FRESHNESS", &config.Acquisition.CodeFreshness)
	duration("EXPIRY_MARGIN", &config.Acquisition.ExpiryMargin)

	return result.ErrorOrNil()
}

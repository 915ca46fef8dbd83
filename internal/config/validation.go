package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	add := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	add(ValidateRequired("authority", c.Authority))
	add(ValidateAbsoluteURL("authority", c.Authority, "https"))
	add(ValidateRequired("clientID", c.ClientID))
	add(ValidateRequired("redirectURI", c.RedirectURI))
	add(ValidateAbsoluteURL("redirectURI", c.RedirectURI))
	add(ValidateOneOf("webUI", c.WebUI, []string{WebUIAuto, WebUILoopback, WebUIPrompt}))

	if c.Cache.LockAttempts < 1 {
		add(ValidationError{Field: "cache.lockAttempts", Value: c.Cache.LockAttempts, Message: "must be at least 1"})
	}
	if c.Cache.LockDelay < 0 {
		add(ValidationError{Field: "cache.lockDelay", Value: c.Cache.LockDelay, Message: "must not be negative"})
	}
	if c.Cache.RedisURL != "" {
		add(ValidateAbsoluteURL("cache.redisURL", c.Cache.RedisURL, "redis", "rediss", "unix"))
	}
	if c.HTTP.Timeout <= 0 {
		add(ValidationError{Field: "http.timeout", Value: c.HTTP.Timeout, Message: "must be positive"})
	}
	if c.Acquisition.CodeFreshness < 0 {
		add(ValidationError{Field: "acquisition.codeFreshness", Value: c.Acquisition.CodeFreshness, Message: "must not be negative"})
	}
	if c.Acquisition.ExpiryMargin < 0 {
		add(ValidationError{Field: "acquisition.expiryMargin", Value: c.Acquisition.ExpiryMargin, Message: "must not be negative"})
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "is required",
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateAbsoluteURL checks that a non-empty value is an absolute URL, optionally
// restricted to schemes. Empty values are left to ValidateRequired.
func ValidateAbsoluteURL(field, value string, schemes ...string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return ValidationError{Field: field, Value: value, Message: "must be an absolute URL"}
	}
	if len(schemes) == 0 {
		return nil
	}
	for _, scheme := range schemes {
		if strings.EqualFold(u.Scheme, scheme) {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must use scheme %s", strings.Join(schemes, " or ")),
	}
}

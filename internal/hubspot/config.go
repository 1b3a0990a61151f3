package hubspot

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.hubapi.com"
	DefaultTimeout    = 30 * time.Second
	DefaultPipelineID = "default"
)

// ErrMissingAPIKey is returned when a manager is built without a bearer token.
var ErrMissingAPIKey = errors.New("hubspot api key is required")

// ClientConfig holds the connection identity of one sync manager. It is copied at construction.
type ClientConfig struct {
	APIKey            string
	DefaultOwnerID    string
	DefaultPipelineID string
	BaseURL           string
	Timeout           time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the fields a manager cannot work without.
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.BaseURL != "" {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid base url %q: scheme and host are required", c.BaseURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

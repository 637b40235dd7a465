package plugsdk

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "https://api.codegpt.co/v1"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryCount     = 2
	DefaultRetryInterval  = time.Second
)

// Config is the configuration for the PlugSDK
type Config struct {
	BaseURL        string        // BaseURL is required
	RequestTimeout time.Duration // RequestTimeout bounds every single call
	RetryCount     int           // RetryCount applies to idempotent calls only
	RetryInterval  time.Duration
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}

	return nil
}

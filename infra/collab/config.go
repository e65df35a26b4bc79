package collab

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the Australian Collaborate scheduler API.
const DefaultBaseURL = "https://au-lti.bbcollab.com/collab/api/csa"

// Config describes how to reach the scheduler API.
type Config struct {
	BaseURL        string `json:"base_url"`
	ProbeURL       string `json:"probe_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ProbeURL == "" {
		c.ProbeURL = c.BaseURL + "/sessions"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks that both URLs are absolute.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"base_url": c.BaseURL, "probe_url": c.ProbeURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api.%s: invalid url %q", name, raw)
		}
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	return nil
}

package auth

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf holds optional client credentials for the Collaborate token
// endpoint. When ClientID is empty a bearer token copied from an authed
// browser request is used instead.
type Conf struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
}

// Enabled reports whether client credentials are configured.
func (c Conf) Enabled() bool { return c.ClientID != "" }

// Validate requires a token endpoint and secret once a client ID is set.
func (c Conf) Validate() error {
	if !c.Enabled() {
		return nil
	}
	var missing []string
	if c.ClientSecret == "" {
		missing = append(missing, "auth.client_secret")
	}
	if c.TokenURL == "" {
		missing = append(missing, "auth.token_url")
	} else if u, err := url.Parse(c.TokenURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("auth.token_url %q is not an absolute URL", c.TokenURL)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required with auth.client_id", strings.Join(missing, " and "))
	}
	return nil
}

func (c Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/oidc-client/internal/strutils"
	sdkHttp "github.com/hashicorp/oidc-client/sdk/http"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for an OIDC relying party using the
// authorization code flow.  A Config should not be modified once it's been
// handed to NewClient.
type Config struct {
	// DiscoveryURI is the URL of the provider's discovery document (for
	// example: https://accounts.example.com/.well-known/openid-configuration).
	DiscoveryURI string

	// ClientID is the relying party id.  It's also the only audience
	// accepted when validating tokens.
	ClientID string

	// ClientSecret is the relying party secret.  It's optional and sent to
	// the token endpoint using HTTP basic auth.
	ClientSecret ClientSecret

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// InsecureSkipVerify disables verification of the provider's TLS
	// certificate.  It defaults to false and should only be used for local
	// development.
	InsecureSkipVerify bool

	// Logger is an optional logger.  If nil, logging is discarded.
	Logger hclog.Logger
}

// NewConfig composes a new config for a provider.
//
// Supported options:
//   - WithLogger
//   - WithProviderCA
//   - WithInsecureSkipVerify
func NewConfig(discoveryURI, clientID string, clientSecret ClientSecret, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		DiscoveryURI:       discoveryURI,
		ClientID:           clientID,
		ClientSecret:       clientSecret,
		ProviderCA:         opts.withProviderCA,
		InsecureSkipVerify: opts.withInsecureSkipVerify,
		Logger:             opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration.  It verifies the discovery URI is an http(s)
// URL and the client id is not empty, but it doesn't verify the discovery
// document can be retrieved.  All problems found are reported.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.DiscoveryURI == "":
		result = multierror.Append(result, fmt.Errorf("%s: discovery URI is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse(c.DiscoveryURI)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("%s: discovery URI %q is invalid: %v: %w", op, c.DiscoveryURI, err, ErrInvalidParameter))
		case !strutils.StrListContains([]string{"https", "http"}, u.Scheme):
			result = multierror.Append(result, fmt.Errorf("%s: discovery URI %q scheme is not http or https: %w", op, c.DiscoveryURI, ErrInvalidParameter))
		}
	}
	if c.ProviderCA != "" {
		if _, err := sdkHttp.NewClient(c.ProviderCA, false); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, ErrInvalidCACert))
		}
	}
	return result.ErrorOrNil()
}

// HTTPClient creates a new http client for the configured provider.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, c.InsecureSkipVerify)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value successfully: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// logger returns the configured logger or a null logger.
func (c *Config) logger() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withProviderCA         string
	withInsecureSkipVerify bool
	withLogger             hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the config defaults and applies the opt overrides passed
// in
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithProviderCA provides optional CA certs (PEM encoded) for the provider's
// config.  These certs will can be used when making http requests to the
// provider.
//
// Valid for: Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification for every
// request made to the provider.  Don't use it outside of local development.
//
// Valid for: Config
func WithInsecureSkipVerify() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withInsecureSkipVerify = true
		}
	}
}

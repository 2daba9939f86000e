// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidc-client/jwt"
)

// Client is an OIDC relying party for a single provider.  It lazily discovers
// the provider on first use and caches the discovery document and signing
// keys for its lifetime.  A Client is safe for concurrent use.
type Client struct {
	config *Config
	client *http.Client
	logger hclog.Logger
	now    func() time.Time

	mu        sync.Mutex
	discovery *DiscoveryDocument
	keys      *jwt.KeySet
}

// NewClient creates a new Client.  No requests are made to the provider until
// the first operation (or an explicit call to Discover).
//
// Supported options:
//   - WithNow
//   - WithHTTPClient
func NewClient(c *Config, opt ...Option) (*Client, error) {
	const op = "NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getClientOpts(opt...)

	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = c.HTTPClient(); err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	return &Client{
		config: c,
		client: client,
		logger: c.logger().Named("oidc"),
		now:    opts.withNowFunc,
	}, nil
}

// LogoutURL returns the provider's end session endpoint.  When a redirect is
// provided it's appended as the redirect_uri query parameter exactly as given
// (it is not escaped), so callers must escape it if needed.
func (c *Client) LogoutURL(ctx context.Context, redirect ...string) (string, error) {
	const op = "Client.LogoutURL"
	doc, _, err := c.discover(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if doc.EndSessionEndpoint == "" {
		return "", NewError(KindConfiguration, WithOp(op), WithMsg("the value for end_session_endpoint could not be found"))
	}
	if len(redirect) == 0 || redirect[0] == "" {
		return doc.EndSessionEndpoint, nil
	}
	return doc.EndSessionEndpoint + "?redirect_uri=" + redirect[0], nil
}

// clientOptions is the set of available options for Client functions
type clientOptions struct {
	withNowFunc    func() time.Time
	withHTTPClient *http.Client
}

// clientDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func clientDefaults() clientOptions {
	return clientOptions{
		withNowFunc: time.Now,
	}
}

// getClientOpts gets the client defaults and applies the opt overrides passed
// in
func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

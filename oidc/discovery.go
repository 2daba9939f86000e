// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/oidc-client/jwt"
)

// maxResponseSize bounds how much of a provider response is read.
const maxResponseSize = 1 << 20

// DiscoveryDocument is the subset of the provider's metadata used by the
// Client.  Optional endpoints the provider didn't publish are empty.
//
// See: https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type DiscoveryDocument struct {
	Issuer                string `json:"issuer,omitempty"`
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`
	TokenEndpoint         string `json:"token_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri,omitempty"`
}

// Discover retrieves the provider's discovery document and signing keys.  The
// first successful call caches both for the lifetime of the Client, and
// subsequent calls return the cached document without any requests.  A failed
// call caches nothing.  Concurrent callers are serialized, so the provider is
// only queried once.  A caller waiting for another caller's discovery can't
// be cancelled by its own ctx until that discovery completes.
//
// Every other Client operation calls Discover, so calling it directly is only
// needed to resolve the provider ahead of time.
func (c *Client) Discover(ctx context.Context) (*DiscoveryDocument, error) {
	const op = "Client.Discover"
	doc, _, err := c.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	copied := *doc
	return &copied, nil
}

// discover resolves (or returns the cached) discovery document and key set.
func (c *Client) discover(ctx context.Context) (*DiscoveryDocument, *jwt.KeySet, error) {
	const op = "Client.discover"
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discovery != nil {
		return c.discovery, c.keys, nil
	}

	var doc DiscoveryDocument
	if err := c.getJSON(ctx, c.config.DiscoveryURI, &doc); err != nil {
		return nil, nil, NewError(KindCommunication, WithOp(op), WithMsg(fmt.Sprintf("unable to retrieve discovery document %s", c.config.DiscoveryURI)), WithWrap(err))
	}
	if doc.JWKSURI == "" {
		return nil, nil, NewError(KindConfiguration, WithOp(op), WithMsg("the value for jwks_uri could not be found"))
	}

	raw, err := c.get(ctx, doc.JWKSURI)
	if err != nil {
		return nil, nil, NewError(KindCommunication, WithOp(op), WithMsg(fmt.Sprintf("unable to retrieve key set %s", doc.JWKSURI)), WithWrap(err))
	}
	keys, skipped, err := jwt.NewKeySet(raw)
	if err != nil {
		return nil, nil, NewError(KindCommunication, WithOp(op), WithMsg(fmt.Sprintf("unable to decode key set %s", doc.JWKSURI)), WithWrap(err))
	}
	if skipped != nil {
		c.logger.Debug("skipped signing keys", "op", op, "jwks_uri", doc.JWKSURI, "reason", skipped)
	}

	c.logger.Debug("discovered provider", "op", op,
		"issuer", doc.Issuer,
		"authorization_endpoint", doc.AuthorizationEndpoint,
		"token_endpoint", doc.TokenEndpoint,
		"end_session_endpoint", doc.EndSessionEndpoint,
		"jwks_uri", doc.JWKSURI,
		"key_ids", keys.KeyIDs(),
	)
	c.discovery = &doc
	c.keys = keys
	return c.discovery, c.keys, nil
}

// get issues a GET request and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	const op = "Client.get"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s returned code %d", op, u, resp.StatusCode)
	}
	return body, nil
}

// getJSON issues a GET request and decodes the JSON object in the body of a
// 200 response into v.
func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	const op = "Client.getJSON"
	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: response from %s is not a JSON object: %w", op, u, err)
	}
	return nil
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// AuthURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with the provider.  The redirectURI is the URL the
// provider should redirect to after the user authenticates, and state is an
// opaque value returned unchanged in that redirect (see NewState).
//
// The response_type, client_id, redirect_uri, scope and state parameters are
// appended after any query parameters already present on the provider's
// authorization endpoint.  Existing parameters are never removed or
// replaced, even when they share a name with a new one.  The endpoint must
// not carry a fragment: parameters are appended after it verbatim.
func (c *Client) AuthURL(ctx context.Context, responseType, redirectURI string, scopes Scope, state string) (string, error) {
	const op = "Client.AuthURL"
	doc, _, err := c.discover(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if doc.AuthorizationEndpoint == "" {
		return "", NewError(KindConfiguration, WithOp(op), WithMsg("the value for authorization_endpoint could not be found"))
	}

	oauth2Config := oauth2.Config{
		ClientID: c.config.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:  doc.AuthorizationEndpoint,
			TokenURL: doc.TokenEndpoint,
		},
	}
	// every parameter is sent, even when empty, and response_type replaces
	// the oauth2 package's default of "code".
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", responseType),
		oauth2.SetAuthURLParam("redirect_uri", redirectURI),
		oauth2.SetAuthURLParam("scope", scopes.String()),
		oauth2.SetAuthURLParam("state", state),
	}
	return oauth2Config.AuthCodeURL(state, authCodeOpts...), nil
}

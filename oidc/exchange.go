// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Exchange will request tokens from the provider's token endpoint using the
// authorization code found in responseURL, the URL the provider redirected
// the user to at the end of the authorization request.
//
// The redirectURI and scopes should be the ones used to create the
// authorization request.  When expectedState is not empty, the state
// parameter of the response must be present and equal to it.  An empty
// expectedState skips the state check.
//
// The response is checked before the provider is discovered, so a
// responseURL without a code (an empty code counts as missing) (or with the wrong state) never results in a
// request.  On success, the token endpoint's JSON response is returned
// unmodified.
func (c *Client) Exchange(ctx context.Context, responseURL, redirectURI string, scopes Scope, expectedState string) (TokenResponse, error) {
	const op = "Client.Exchange"
	u, err := url.Parse(responseURL)
	if err != nil {
		return nil, NewError(KindAuthentication, WithOp(op), WithMsg("unable to parse authorization response"), WithWrap(err))
	}
	params := u.Query()
	if params.Get("code") == "" {
		msg := "authorization code not found in response"
		if e := params.Get("error"); e != "" {
			msg = fmt.Sprintf("%s (provider error %q: %s)", msg, e, params.Get("error_description"))
		}
		return nil, NewError(KindAuthentication, WithOp(op), WithMsg(msg))
	}
	if expectedState != "" {
		if !params.Has("state") {
			return nil, NewError(KindAuthentication, WithOp(op), WithMsg("response does not contain a state"))
		}
		if params.Get("state") != expectedState {
			return nil, NewError(KindAuthentication, WithOp(op), WithMsg("response state does not match the session state"))
		}
	}

	doc, _, err := c.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if doc.TokenEndpoint == "" {
		return nil, NewError(KindConfiguration, WithOp(op), WithMsg("the value for token_endpoint could not be found"))
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"scope":        {scopes.String()},
		"code":         {params.Get("code")},
		"redirect_uri": {redirectURI},
		"client_id":    {c.config.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, NewError(KindCommunication, WithOp(op), WithMsg("unable to create token request"), WithWrap(err))
	}
	req.SetBasicAuth(c.config.ClientID, string(c.config.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	c.logger.Trace("exchanging authorization code", "op", op, "token_endpoint", doc.TokenEndpoint, "redirect_uri", redirectURI)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(KindCommunication, WithOp(op), WithMsg(fmt.Sprintf("unable to reach token endpoint %s", doc.TokenEndpoint)), WithWrap(err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewError(KindCommunication, WithOp(op), WithMsg("unable to read token response"), WithWrap(err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewError(KindAuthentication, WithOp(op), WithMsg(string(body)))
	}

	var tk TokenResponse
	if err := json.Unmarshal(body, &tk); err != nil {
		return nil, NewError(KindAuthentication, WithOp(op), WithMsg("token response is not a JSON object"), WithWrap(err))
	}
	if tk == nil {
		return nil, NewError(KindAuthentication, WithOp(op), WithMsg("token response is empty"))
	}
	return tk, nil
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Exchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const redirect = "https://example.com/callback"

	tests := []struct {
		name             string
		setup            func(tp *TestProvider)
		responseURL      string
		redirectURI      string
		expectedState    string
		wantErr          bool
		wantIsErr        error
		wantErrContains  string
		wantNoRequests   bool
		wantTokenRequest bool
	}{
		{
			name:             "valid",
			responseURL:      redirect + "?code=test-code&state=s1",
			redirectURI:      redirect,
			expectedState:    "s1",
			wantTokenRequest: true,
		},
		{
			name:             "valid-state-not-checked",
			responseURL:      redirect + "?code=test-code&state=anything",
			redirectURI:      redirect,
			wantTokenRequest: true,
		},
		{
			name:             "valid-no-state-not-checked",
			responseURL:      redirect + "?code=test-code",
			redirectURI:      redirect,
			wantTokenRequest: true,
		},
		{
			name:            "missing-code",
			responseURL:     redirect + "?state=s1",
			redirectURI:     redirect,
			expectedState:   "s1",
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "authorization code not found",
			wantNoRequests:  true,
		},
		{
			name:            "empty-code",
			responseURL:     redirect + "?code=&state=s1",
			redirectURI:     redirect,
			expectedState:   "s1",
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "authorization code not found",
			wantNoRequests:  true,
		},
		{
			name:            "provider-error",
			responseURL:     redirect + "?error=access_denied&error_description=denied&state=s1",
			redirectURI:     redirect,
			expectedState:   "s1",
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "access_denied",
			wantNoRequests:  true,
		},
		{
			name:            "missing-state",
			responseURL:     redirect + "?code=test-code",
			redirectURI:     redirect,
			expectedState:   "s1",
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "does not contain a state",
			wantNoRequests:  true,
		},
		{
			name:            "mismatched-state",
			responseURL:     redirect + "?code=test-code&state=s2",
			redirectURI:     redirect,
			expectedState:   "s1",
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "does not match",
			wantNoRequests:  true,
		},
		{
			name:           "unparsable-response-url",
			responseURL:    "https://example.com/%zz",
			redirectURI:    redirect,
			wantErr:        true,
			wantIsErr:      ErrAuthentication,
			wantNoRequests: true,
		},
		{
			name:             "bad-code",
			responseURL:      redirect + "?code=not-the-code",
			redirectURI:      redirect,
			wantErr:          true,
			wantIsErr:        ErrAuthentication,
			wantErrContains:  "unexpected auth code",
			wantTokenRequest: true,
		},
		{
			name: "bad-client-secret",
			setup: func(tp *TestProvider) {
				tp.SetClientCreds("test-client-id", "another-secret")
			},
			responseURL:      redirect + "?code=test-code",
			redirectURI:      redirect,
			wantErr:          true,
			wantIsErr:        ErrAuthentication,
			wantErrContains:  "invalid_client",
			wantTokenRequest: true,
		},
		{
			name: "token-endpoint-error",
			setup: func(tp *TestProvider) {
				tp.SetStatus("/token", http.StatusInternalServerError)
			},
			responseURL:     redirect + "?code=test-code",
			redirectURI:     redirect,
			wantErr:         true,
			wantIsErr:       ErrAuthentication,
			wantErrContains: "forced error",
		},
		{
			name: "missing-token-endpoint",
			setup: func(tp *TestProvider) {
				tp.OmitDiscoveryField("token_endpoint")
			},
			responseURL: redirect + "?code=test-code",
			redirectURI: redirect,
			wantErr:     true,
			wantIsErr:   ErrConfiguration,
		},
		{
			name: "discovery-failure",
			setup: func(tp *TestProvider) {
				tp.SetStatus(TestDiscoveryPath, http.StatusBadGateway)
			},
			responseURL: redirect + "?code=test-code",
			redirectURI: redirect,
			wantErr:     true,
			wantIsErr:   ErrCommunication,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			c := testNewClient(t, tp)
			if tt.setup != nil {
				tt.setup(tp)
			}
			scopes := ScopeList("openid", "email")
			got, err := c.Exchange(ctx, tt.responseURL, tt.redirectURI, scopes, tt.expectedState)
			if tt.wantNoRequests {
				assert.Equal(0, tp.Requests(TestDiscoveryPath))
				assert.Equal(0, tp.Requests("/token"))
			}
			if tt.wantTokenRequest {
				id, secret := "test-client-id", "test-client-secret"
				req := tp.LastTokenRequest()
				require.NotNil(req)
				assert.Equal("authorization_code", req.Form.Get("grant_type"))
				assert.Equal("openid email", req.Form.Get("scope"))
				assert.Equal(tt.redirectURI, req.Form.Get("redirect_uri"))
				assert.Equal(id, req.Form.Get("client_id"))
				assert.NotEmpty(req.Form.Get("code"))
				assert.Equal("Basic "+base64.StdEncoding.EncodeToString([]byte(id+":"+secret)), req.Authorization)
				assert.Equal("application/x-www-form-urlencoded;charset=UTF-8", req.ContentType)
				assert.Equal("application/json", req.Accept)
			}
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				if tt.wantErrContains != "" {
					assert.Contains(err.Error(), tt.wantErrContains)
				}
				return
			}
			require.NoError(err)
			assert.Equal("test-access-token", string(got.AccessToken()))
			assert.Equal("Bearer", got.TokenType())
			assert.NotEmpty(got.IdToken())
			// the response is passed through as is
			assert.Equal(float64(DefaultTestTokenExpiry.Seconds()), got["expires_in"])
		})
	}
}

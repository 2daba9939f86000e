// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNewClient creates a Client for the test provider using the test
// provider's client credentials.
func testNewClient(t *testing.T, tp *TestProvider, opt ...Option) *Client {
	t.Helper()
	require := require.New(t)
	id, secret := tp.ClientCreds()
	c, err := NewConfig(tp.DiscoveryURI(), id, ClientSecret(secret), WithProviderCA(tp.CACert()))
	require.NoError(err)
	client, err := NewClient(c, opt...)
	require.NoError(err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	testNow := func() time.Time { return time.Unix(0, 0) }
	testHTTPClient := &http.Client{}

	tests := []struct {
		name           string
		config         func() *Config
		opt            []Option
		wantErr        bool
		wantIsErr      error
		wantHTTPClient *http.Client
		wantNow        time.Time
	}{
		{
			name: "valid",
			config: func() *Config {
				c, err := NewConfig(tp.DiscoveryURI(), "client-id", "", WithProviderCA(tp.CACert()))
				require.NoError(t, err)
				return c
			},
		},
		{
			name: "valid-with-opts",
			config: func() *Config {
				c, err := NewConfig(tp.DiscoveryURI(), "client-id", "")
				require.NoError(t, err)
				return c
			},
			opt:            []Option{WithNow(testNow), WithHTTPClient(testHTTPClient)},
			wantHTTPClient: testHTTPClient,
			wantNow:        time.Unix(0, 0),
		},
		{
			name:      "nil-config",
			config:    func() *Config { return nil },
			wantErr:   true,
			wantIsErr: ErrNilParameter,
		},
		{
			name: "invalid-config",
			config: func() *Config {
				return &Config{DiscoveryURI: tp.DiscoveryURI()}
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewClient(tt.config(), tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.NotNil(got.config)
			assert.NotNil(got.client)
			assert.NotNil(got.logger)
			assert.NotNil(got.now)
			if tt.wantHTTPClient != nil {
				assert.Same(tt.wantHTTPClient, got.client)
			}
			if !tt.wantNow.IsZero() {
				assert.Equal(tt.wantNow, got.now())
			}
			// nothing is requested until the first operation
			assert.Nil(got.discovery)
			assert.Nil(got.keys)
			assert.Equal(0, tp.Requests(TestDiscoveryPath))
		})
	}
}

func TestClient_LogoutURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("without-redirect", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := testNewClient(t, tp)
		got, err := c.LogoutURL(ctx)
		require.NoError(err)
		assert.Equal(tp.Addr()+"/logout", got)
	})
	t.Run("with-redirect-is-not-escaped", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := testNewClient(t, tp)
		got, err := c.LogoutURL(ctx, "https://example.com/bye?a=b")
		require.NoError(err)
		assert.Equal(tp.Addr()+"/logout?redirect_uri=https://example.com/bye?a=b", got)
	})
	t.Run("empty-redirect", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := testNewClient(t, tp)
		got, err := c.LogoutURL(ctx, "")
		require.NoError(err)
		assert.Equal(tp.Addr()+"/logout", got)
	})
	t.Run("missing-end-session-endpoint", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.OmitDiscoveryField("end_session_endpoint")
		c := testNewClient(t, tp)
		_, err := c.LogoutURL(ctx)
		require.Error(err)
		assert.Truef(errors.Is(err, ErrConfiguration), "wanted \"%s\" but got \"%s\"", ErrConfiguration, err)
	})
	t.Run("discovery-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetStatus(TestDiscoveryPath, http.StatusInternalServerError)
		c := testNewClient(t, tp)
		_, err := c.LogoutURL(ctx)
		require.Error(err)
		assert.Truef(errors.Is(err, ErrCommunication), "wanted \"%s\" but got \"%s\"", ErrCommunication, err)
	})
}

// TestClient_EndToEnd runs an authorization code flow against the test
// provider: build the auth URL, exchange the code from the redirect and
// validate the id_token.
func TestClient_EndToEnd(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	tp := StartTestProvider(t)
	tp.SetExpectedAuthCode("the-code")
	tp.SetCustomClaims(map[string]interface{}{"email": "alice@example.com"})
	c := testNewClient(t, tp)
	id, _ := tp.ClientCreds()

	const redirect = "https://example.com/callback"
	scopes := ScopeList("openid", "email")
	state, err := NewState()
	require.NoError(err)

	authURL, err := c.AuthURL(ctx, "code", redirect, scopes, state)
	require.NoError(err)
	u, err := url.Parse(authURL)
	require.NoError(err)
	assert.Equal(id, u.Query().Get("client_id"))
	assert.Equal(state, u.Query().Get("state"))

	// the provider redirects back with the code and state
	response := redirect + "?" + url.Values{"code": {"the-code"}, "state": {state}}.Encode()
	tk, err := c.Exchange(ctx, response, redirect, scopes, state)
	require.NoError(err)
	require.NotEmpty(tk.IdToken())
	assert.Equal("test-access-token", string(tk.AccessToken()))

	claims, err := c.ValidateToken(ctx, string(tk.IdToken()))
	require.NoError(err)
	assert.Equal(id, claims.Audience())
	assert.Equal("alice@example.com", claims.Subject())
	assert.Equal("alice@example.com", claims["email"])
	assert.Contains(claims, "exp")

	logout, err := c.LogoutURL(ctx, redirect)
	require.NoError(err)
	assert.Equal(tp.Addr()+"/logout?redirect_uri="+redirect, logout)

	// discovery happened exactly once for the whole flow
	assert.Equal(1, tp.Requests(TestDiscoveryPath))
	assert.Equal(1, tp.Requests("/certs"))
	assert.Equal(1, tp.Requests("/token"))
}

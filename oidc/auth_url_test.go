// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AuthURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const redirect = "https://example.com/callback"

	tests := []struct {
		name         string
		setup        func(tp *TestProvider)
		responseType string
		scopes       Scope
		state        string
		wantQuery    url.Values
		wantRawParts []string
		wantErr      bool
		wantIsErr    error
	}{
		{
			name:         "scope-list",
			responseType: "code",
			scopes:       ScopeList("openid", "profile"),
			state:        "xyz",
			wantQuery: url.Values{
				"response_type": {"code"},
				"client_id":     {"test-client-id"},
				"redirect_uri":  {redirect},
				"scope":         {"openid profile"},
				"state":         {"xyz"},
			},
			wantRawParts: []string{"scope=openid+profile", "state=xyz"},
		},
		{
			name:         "scope-string",
			responseType: "id_token",
			scopes:       ScopeString("openid email"),
			state:        "abc",
			wantQuery: url.Values{
				"response_type": {"id_token"},
				"client_id":     {"test-client-id"},
				"redirect_uri":  {redirect},
				"scope":         {"openid email"},
				"state":         {"abc"},
			},
		},
		{
			name: "existing-query-is-kept",
			setup: func(tp *TestProvider) {
				tp.SetAuthEndpointQuery("foo=bar")
			},
			responseType: "code",
			scopes:       ScopeList("openid", "profile"),
			state:        "xyz",
			wantQuery: url.Values{
				"foo":           {"bar"},
				"response_type": {"code"},
				"client_id":     {"test-client-id"},
				"redirect_uri":  {redirect},
				"scope":         {"openid profile"},
				"state":         {"xyz"},
			},
			wantRawParts: []string{"?foo=bar&", "scope=openid+profile", "state=xyz"},
		},
		{
			name: "duplicates-are-kept",
			setup: func(tp *TestProvider) {
				tp.SetAuthEndpointQuery("state=old&client_id=other")
			},
			responseType: "code",
			scopes:       ScopeList("openid"),
			state:        "new",
			wantQuery: url.Values{
				"response_type": {"code"},
				"client_id":     {"other", "test-client-id"},
				"redirect_uri":  {redirect},
				"scope":         {"openid"},
				"state":         {"old", "new"},
			},
		},
		{
			name:         "empty-state-and-scope",
			responseType: "code",
			scopes:       ScopeList(),
			wantQuery: url.Values{
				"response_type": {"code"},
				"client_id":     {"test-client-id"},
				"redirect_uri":  {redirect},
				"scope":         {""},
				"state":         {""},
			},
		},
		{
			name: "missing-authorization-endpoint",
			setup: func(tp *TestProvider) {
				tp.OmitDiscoveryField("authorization_endpoint")
			},
			responseType: "code",
			scopes:       ScopeList("openid"),
			state:        "xyz",
			wantErr:      true,
			wantIsErr:    ErrConfiguration,
		},
		{
			name: "discovery-failure",
			setup: func(tp *TestProvider) {
				tp.SetStatus(TestDiscoveryPath, http.StatusForbidden)
			},
			responseType: "code",
			scopes:       ScopeList("openid"),
			state:        "xyz",
			wantErr:      true,
			wantIsErr:    ErrCommunication,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			if tt.setup != nil {
				tt.setup(tp)
			}
			c := testNewClient(t, tp)
			got, err := c.AuthURL(ctx, tt.responseType, redirect, tt.scopes, tt.state)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			require.True(strings.HasPrefix(got, tp.Addr()+"/authorize?"), got)

			u, err := url.Parse(got)
			require.NoError(err)
			assert.Equal(tt.wantQuery, u.Query())
			for _, p := range tt.wantRawParts {
				assert.Contains(got, p)
			}
			// building the url doesn't make any requests beyond discovery
			assert.Equal(0, tp.Requests("/authorize"))
			assert.Equal(0, tp.Requests("/token"))
		})
	}
}

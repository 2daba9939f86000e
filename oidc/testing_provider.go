// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/oidc-client/internal/strutils"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

const (
	// TestDiscoveryPath is where the TestProvider serves its discovery
	// document.
	TestDiscoveryPath = "/.well-known/openid-configuration"

	// DefaultTestKeyID is the key id of the TestProvider's signing key.
	DefaultTestKeyID = "test-key"

	// DefaultTestTokenExpiry is how long id_tokens issued by the
	// TestProvider's token endpoint are valid.
	DefaultTestTokenExpiry = 5 * time.Minute
)

// TestTokenRequest is a request received by the TestProvider's token
// endpoint.
type TestTokenRequest struct {
	Form          url.Values
	Authorization string
	ContentType   string
	Accept        string
}

// TestProvider is a local TLS server which serves a discovery document, a
// JWKS and a token endpoint, making it easy to write tests for a Client.
// Most of its replies can be changed at runtime to force error conditions.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	allowedRedirectURIs []string
	authEndpointQuery   string
	omitDiscovery       map[string]bool
	statusOverrides     map[string]int
	rawJWKS             string
	customClaims        map[string]interface{}
	customAudience      interface{}
	tokenExpiry         time.Duration
	requests            map[string]int
	lastTokenRequest    *TestTokenRequest

	signingKey crypto.Signer
	signingAlg jose.SignatureAlgorithm
	keyID      string
	jwks       *jose.JSONWebKeySet

	t *testing.T
}

// StartTestProvider creates and starts a disposable TestProvider.  It's
// stopped automatically when the test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		clientID:         "test-client-id",
		clientSecret:     "test-client-secret",
		expectedAuthCode: "test-code",
		allowedRedirectURIs: []string{
			"https://example.com/callback",
		},
		omitDiscovery:   map[string]bool{},
		statusOverrides: map[string]int{},
		requests:        map[string]int{},
		tokenExpiry:     DefaultTestTokenExpiry,
		t:               t,
	}
	pub, priv := TestGenerateKeys(t)
	p.signingKey = priv
	p.signingAlg = jose.ES256
	p.keyID = DefaultTestKeyID
	p.jwks = TestJWKS(t, pub, jose.ES256, DefaultTestKeyID)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// DiscoveryURI returns the URL of the test provider's discovery document.
func (p *TestProvider) DiscoveryURI() string { return p.Addr() + TestDiscoveryPath }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// ClientCreds returns the client id and secret the token endpoint expects.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetClientCreds is for configuring the client information required for the
// token endpoint.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code the token endpoint accepts.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs configures the redirect URIs the token endpoint
// accepts.  If not configured "https://example.com/callback" is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetAuthEndpointQuery sets a raw query string (without the "?") published
// as part of the authorization_endpoint.
func (p *TestProvider) SetAuthEndpointQuery(rawQuery string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authEndpointQuery = rawQuery
}

// OmitDiscoveryField removes a field (for example: "jwks_uri") from the
// discovery document.
func (p *TestProvider) OmitDiscoveryField(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitDiscovery[name] = true
}

// SetStatus forces the endpoint at path to reply with the status code and no
// body (the token endpoint replies with an oauth error body).
func (p *TestProvider) SetStatus(path string, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusOverrides[path] = code
}

// ClearStatus removes a status set with SetStatus.
func (p *TestProvider) ClearStatus(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.statusOverrides, path)
}

// SetRawJWKS replaces the JWKS reply with raw.
func (p *TestProvider) SetRawJWKS(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawJWKS = raw
}

// SetSigningKey replaces the key used to sign tokens and the JWKS published
// for it.
func (p *TestProvider) SetSigningKey(priv crypto.Signer, alg jose.SignatureAlgorithm, keyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingKey = priv
	p.signingAlg = alg
	p.keyID = keyID
	p.jwks = TestJWKS(p.t, priv.Public(), alg, keyID)
}

// SigningKey returns the key, algorithm and key id used to sign tokens.
func (p *TestProvider) SigningKey() (crypto.Signer, jose.SignatureAlgorithm, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signingKey, p.signingAlg, p.keyID
}

// SetCustomClaims lets you set claims to return in the id_token issued by the
// token endpoint.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures the audience value embedded in the id_token
// issued by the token endpoint.  It may be a string or a []string.
func (p *TestProvider) SetCustomAudience(aud interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = aud
}

// SetTokenExpiry configures how long id_tokens issued by the token endpoint
// are valid.  A negative duration issues expired tokens.
func (p *TestProvider) SetTokenExpiry(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenExpiry = d
}

// Requests returns the number of requests received for path.
func (p *TestProvider) Requests(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[path]
}

// LastTokenRequest returns the last request received by the token endpoint,
// or nil.
func (p *TestProvider) LastTokenRequest() *TestTokenRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTokenRequest
}

// IssueToken signs claims with the provider's current signing key.
func (p *TestProvider) IssueToken(claims map[string]interface{}) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return TestSignJWT(p.t, p.signingKey, p.signingAlg, claims, p.keyID)
}

// DefaultClaims returns the claims of a token issued for the configured
// client id which expires in the configured token expiry.
func (p *TestProvider) DefaultClaims() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.defaultClaims()
}

func (p *TestProvider) defaultClaims() map[string]interface{} {
	now := time.Now()
	claims := map[string]interface{}{
		"iss": p.Addr(),
		"sub": "alice@example.com",
		"aud": p.clientID,
		"iat": now.Unix(),
		"exp": now.Add(p.tokenExpiry).Unix(),
	}
	if p.customAudience != nil {
		claims["aud"] = p.customAudience
	}
	for k, v := range p.customClaims {
		claims[k] = v
	}
	return claims
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests[req.URL.Path]++
	w.Header().Set("Content-Type", "application/json")

	if code, ok := p.statusOverrides[req.URL.Path]; ok {
		if req.URL.Path == "/token" {
			_ = p.writeTokenErrorResponse(w, code, "invalid_request", "forced error")
			return
		}
		w.WriteHeader(code)
		return
	}

	switch req.URL.Path {
	case TestDiscoveryPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		authEndpoint := p.Addr() + "/authorize"
		if p.authEndpointQuery != "" {
			authEndpoint += "?" + p.authEndpointQuery
		}
		reply := map[string]interface{}{
			"issuer":                 p.Addr(),
			"authorization_endpoint": authEndpoint,
			"token_endpoint":         p.Addr() + "/token",
			"end_session_endpoint":   p.Addr() + "/logout",
			"jwks_uri":               p.Addr() + "/certs",
		}
		for k := range p.omitDiscovery {
			delete(reply, k)
		}
		_ = p.writeJSON(w, reply)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.rawJWKS != "" {
			_, _ = w.Write([]byte(p.rawJWKS))
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := req.ParseForm(); err != nil {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "unable to parse form")
			return
		}
		p.lastTokenRequest = &TestTokenRequest{
			Form:          req.PostForm,
			Authorization: req.Header.Get("Authorization"),
			ContentType:   req.Header.Get("Content-Type"),
			Accept:        req.Header.Get("Accept"),
		}

		id, secret, _ := req.BasicAuth()
		switch {
		case id != p.clientID || secret != p.clientSecret:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad client credentials")
			return
		case req.PostFormValue("grant_type") != "authorization_code":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, req.PostFormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.PostFormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
			return
		}

		idToken := TestSignJWT(p.t, p.signingKey, p.signingAlg, p.defaultClaims(), p.keyID)
		reply := map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   int(p.tokenExpiry.Seconds()),
			"id_token":     idToken,
		}
		_ = p.writeJSON(w, reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "encoding/json"

// TokenResponse is the JSON object returned by the provider's token endpoint,
// exactly as it was received.
type TokenResponse map[string]interface{}

// IdToken returns the response's id_token, or an empty IdToken if there isn't
// one.
func (t TokenResponse) IdToken() IdToken {
	return IdToken(t.str("id_token"))
}

// AccessToken returns the response's access_token, or an empty AccessToken if
// there isn't one.
func (t TokenResponse) AccessToken() AccessToken {
	return AccessToken(t.str("access_token"))
}

// RefreshToken returns the response's refresh_token, or an empty RefreshToken
// if there isn't one.
func (t TokenResponse) RefreshToken() RefreshToken {
	return RefreshToken(t.str("refresh_token"))
}

// TokenType returns the response's token_type.
func (t TokenResponse) TokenType() string {
	return t.str("token_type")
}

func (t TokenResponse) str(key string) string {
	if t == nil {
		return ""
	}
	s, _ := t[key].(string)
	return s
}

// IdToken is an oidc id_token.
// See https://openid.net/specs/openid-connect-core-1_0.html#IDToken.
type IdToken string

// RedactedIdToken is the redacted string or json for an oidc id_token.
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IdToken) String() string {
	return RedactedIdToken
}

// MarshalJSON will redact the token.
func (t IdToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIdToken)
}

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

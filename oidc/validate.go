// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Claims are the claims of a validated token.
type Claims map[string]interface{}

// Audience returns the "aud" claim when it's a single string.
func (c Claims) Audience() string {
	s, _ := c["aud"].(string)
	return s
}

// Subject returns the "sub" claim.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// ValidateToken validates a token (typically an id_token) issued by the
// provider and returns its claims.  The checks are, in order:
//
//   - it's a JWS in compact serialization form (three dot separated parts)
//   - its header names (via "kid") a key published by the provider
//   - its signature verifies with that key
//   - it has an "exp" claim which is after the current time
//   - it has an "aud" claim equal to the configured client id
//
// The returned claims can only be trusted when the error is nil.  Audiences
// sent as an array are rejected.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (c *Client) ValidateToken(ctx context.Context, token string) (Claims, error) {
	const op = "Client.ValidateToken"
	_, keys, err := c.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if token == "" {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token is empty"))
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("invalid token format"))
	}

	keyID, err := headerKeyID(parts[0])
	if err != nil {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("unable to decode token header"), WithWrap(err))
	}
	if !keys.Contains(keyID) {
		return nil, NewError(KindValidation, WithOp(op), WithMsg(fmt.Sprintf("token is signed by an unknown key %q", keyID)))
	}

	payload, err := keys.VerifySignature(ctx, keyID, token)
	if err != nil {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("invalid token signature"), WithWrap(err))
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("unable to decode token claims"), WithWrap(err))
	}
	if claims == nil {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token has no claims"))
	}

	if _, ok := claims["exp"]; !ok {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token does not have an expiration"))
	}
	exp, err := expirationTime(claims["exp"])
	if err != nil {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token expiration is invalid"), WithWrap(err))
	}
	if !exp.After(c.now()) {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token has expired"))
	}

	aud, ok := claims["aud"]
	if !ok {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token does not have a specified audience"))
	}
	if s, isString := aud.(string); !isString || s != c.config.ClientID {
		return nil, NewError(KindValidation, WithOp(op), WithMsg("token is not issued for this client"))
	}
	return claims, nil
}

// expirationTime converts an "exp" claim (seconds since the epoch, possibly
// fractional) to a time without truncating it.
func expirationTime(v interface{}) (time.Time, error) {
	const op = "expirationTime"
	var secs float64
	switch n := v.(type) {
	case float64:
		secs = n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
		secs = f
	default:
		return time.Time{}, fmt.Errorf("%s: exp is a %T, not a number", op, v)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("%s: exp is not a finite number", op)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))), nil
}

// headerKeyID decodes a token's header segment and returns its "kid".
func headerKeyID(segment string) (string, error) {
	const op = "headerKeyID"
	if m := len(segment) % 4; m != 0 {
		segment += strings.Repeat("=", 4-m)
	}
	raw, err := base64.URLEncoding.DecodeString(segment)
	if err != nil {
		return "", fmt.Errorf("%s: header is not base64url encoded: %w", op, err)
	}
	var hdr struct {
		KeyID *string `json:"kid"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return "", fmt.Errorf("%s: header is not a JSON object: %w", op, err)
	}
	if hdr.KeyID == nil {
		return "", fmt.Errorf("%s: header does not contain a kid", op)
	}
	return *hdr.KeyID, nil
}

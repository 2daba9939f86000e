// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt holds the JSON Web Key Sets published by OIDC providers and
verifies JWT signatures against them.

A KeySet is built from a provider's JWKS document with NewKeySet and indexes
its keys by their "kid".  A token's signature is verified with exactly one
key, the one its header names:

	ks, skipped, err := jwt.NewKeySet(jwksBody)
	if err != nil {
		// handle error
	}
	if skipped != nil {
		// some keys had no kid and can't be used
	}
	payload, err := ks.VerifySignature(ctx, "key-id-from-header", token)
*/
package jwt

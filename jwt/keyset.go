// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/square/go-jose.v2"
)

var (
	ErrUnknownKey       = errors.New("unknown key id")
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidKeySet    = errors.New("invalid key set")
	ErrInvalidSignature = errors.New("invalid signature")
)

// KeySet is a set of JSON Web Keys published by a provider, indexed by their
// key id.  Each entry's declared "kid" equals the key it's stored under.  A
// KeySet is never modified once it's been built.
type KeySet struct {
	keys map[string]json.RawMessage
}

// jwksDocument is the JSON Web Key Set document served at a provider's
// jwks_uri.
type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// NewKeySet builds a KeySet from a JWKS document.  The key material is kept as
// published and parsed when a token signed by it is verified.
//
// Entries without a "kid" can't be selected by a token and are skipped; the
// returned skipped error describes each of them and is nil when every entry
// was indexed.
func NewKeySet(jwks []byte) (ks *KeySet, skipped error, err error) {
	const op = "jwt.NewKeySet"
	var doc jwksDocument
	if err := json.Unmarshal(jwks, &doc); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to decode key set: %v: %w", op, err, ErrInvalidKeySet)
	}
	var skippedErrs *multierror.Error
	keys := make(map[string]json.RawMessage, len(doc.Keys))
	for i, raw := range doc.Keys {
		var hdr struct {
			KeyID string `json:"kid"`
		}
		if err := json.Unmarshal(raw, &hdr); err != nil {
			skippedErrs = multierror.Append(skippedErrs, fmt.Errorf("key %d is not a JSON object: %w", i, ErrInvalidKey))
			continue
		}
		if hdr.KeyID == "" {
			skippedErrs = multierror.Append(skippedErrs, fmt.Errorf("key %d has no kid: %w", i, ErrInvalidKey))
			continue
		}
		keys[hdr.KeyID] = raw
	}
	return &KeySet{keys: keys}, skippedErrs.ErrorOrNil(), nil
}

// Contains reports whether the key set has a key with the given id.
func (ks *KeySet) Contains(keyID string) bool {
	if ks == nil {
		return false
	}
	_, ok := ks.keys[keyID]
	return ok
}

// KeyIDs returns the sorted ids of every key in the set.
func (ks *KeySet) KeyIDs() []string {
	if ks == nil {
		return nil
	}
	ids := make([]string, 0, len(ks.keys))
	for id := range ks.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of keys in the set.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keys)
}

// PublicKey parses the key with the given id and returns its public key.
// Only asymmetric public keys are returned.
func (ks *KeySet) PublicKey(keyID string) (crypto.PublicKey, error) {
	const op = "KeySet.PublicKey"
	if ks == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrUnknownKey)
	}
	raw, ok := ks.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, keyID, ErrUnknownKey)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%s: unable to parse key %q: %v: %w", op, keyID, err, ErrInvalidKey)
	}
	if !jwk.Valid() || !jwk.IsPublic() {
		return nil, fmt.Errorf("%s: key %q is not a valid public key: %w", op, keyID, ErrInvalidKey)
	}
	if jwk.KeyID != keyID {
		return nil, fmt.Errorf("%s: key %q declares kid %q: %w", op, keyID, jwk.KeyID, ErrInvalidKey)
	}
	return jwk.Key, nil
}

// VerifySignature verifies the signature of the given JWT (in JWS compact
// serialization form) using only the key with the given id, and returns the
// verified payload.
func (ks *KeySet) VerifySignature(ctx context.Context, keyID string, token string) ([]byte, error) {
	const op = "KeySet.VerifySignature"
	pub, err := ks.PublicKey(keyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	verifier := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{pub}}
	payload, err := verifier.VerifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrInvalidSignature)
	}
	return payload, nil
}

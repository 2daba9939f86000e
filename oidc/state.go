// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// DefaultStateLength is the number of random bytes in a state value created by
// NewState.
const DefaultStateLength = 24

// NewState generates an opaque, random value suitable for the state parameter
// of an authorization request.  Keep it with the user's session and hand it
// to Exchange to check the provider's response.
//
// Supported options:
//   - WithPrefix
func NewState(opt ...Option) (string, error) {
	const op = "NewState"
	opts := getStateOpts(opt...)
	b, err := uuid.GenerateRandomBytes(DefaultStateLength)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if opts.withPrefix != "" {
		return fmt.Sprintf("%s_%s", opts.withPrefix, s), nil
	}
	return s, nil
}

// stateOptions is the set of available options for NewState
type stateOptions struct {
	withPrefix string
}

func stateDefaults() stateOptions {
	return stateOptions{}
}

func getStateOpts(opt ...Option) stateOptions {
	opts := stateDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPrefix provides an optional prefix for a state value.
//
// Valid for: NewState
func WithPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*stateOptions); ok {
			o.withPrefix = prefix
		}
	}
}

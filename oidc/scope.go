// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "strings"

// Scope is the set of scopes requested in an authorization request or a
// token exchange.  It's either a single pre-joined string (ScopeString) or an
// ordered list of scope tokens (ScopeList); both are sent as one
// space-delimited value.
type Scope struct {
	single string
	list   []string
	isList bool
}

// ScopeString returns a Scope sent exactly as given (for example: "openid
// email").
func ScopeString(s string) Scope {
	return Scope{single: s}
}

// ScopeList returns a Scope made of the given tokens, joined with a space in
// the order given.
func ScopeList(scopes ...string) Scope {
	list := make([]string, len(scopes))
	copy(list, scopes)
	return Scope{list: list, isList: true}
}

// String returns the space-delimited form of the scope.
func (s Scope) String() string {
	if s.isList {
		return strings.Join(s.list, " ")
	}
	return s.single
}

// IsList reports whether the scope was built with ScopeList.
func (s Scope) IsList() bool {
	return s.isList
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// oidcclient provides a collection of related packages which enable a
// relying party to authenticate users with an OpenID Connect provider.
//
//   - oidc: discovery, authorization URLs, code exchange and token validation
//   - jwt: JSON Web Key Sets and signature verification
//   - sdk/http: the HTTP client used to talk to providers
package oidcclient

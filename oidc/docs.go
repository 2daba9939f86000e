// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for writing OIDC relying party integrations using the
authorization code flow.

# Primary types provided by the package

* Config: provides the configuration for a provider integration (for
example: discovery URI, client id/secret, CA certs).

* Client: provides integration with a single provider.  The provider is
discovered (via its /.well-known/openid-configuration document and jwks_uri)
on first use and cached for the lifetime of the Client.  The Client provides
capabilities like: generating an auth URL, exchanging codes for tokens,
validating tokens and generating logout URLs.

* Scope: the scopes requested, either a single string or a list.

* TokenResponse: the token endpoint's response, with accessors for the
id_token, access_token and refresh_token (which redact themselves when
printed or marshaled).

* Claims: the claims of a validated token.

* Error: every failure is one of four kinds (communication, authentication,
validation and configuration) which can be tested with errors.Is and the
ErrCommunication, ErrAuthentication, ErrValidation and ErrConfiguration
sentinels.

# Testing

TestProvider is a local TLS provider with discovery, JWKS and token endpoints
for unit tests.  TestSignJWT, TestGenerateKeys and TestGenerateCA help build
tokens and certificates for those tests.

# Examples

* OIDC authentication CLI: oidc/examples/cli
*/
package oidc

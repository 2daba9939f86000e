// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package http creates the http.Client used to talk to an OIDC provider.
package http

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
)

// NewClient creates a new http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain.
//
// Server certificates are always verified unless insecureSkipVerify is true.
// Only set it for local development against a provider with a self-signed
// certificate you can't supply as caPEM.
func NewClient(caPEM string, insecureSkipVerify bool) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" || insecureSkipVerify {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if caPEM != "" {
			certPool := x509.NewCertPool()
			if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
				return nil, ErrInvalidCertificatePem
			}
			tlsConfig.RootCAs = certPool
		}
		// #nosec G402 -- explicit opt-in
		tlsConfig.InsecureSkipVerify = insecureSkipVerify
		tr.TLSClientConfig = tlsConfig
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

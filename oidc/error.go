// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"strings"
)

// Kind classifies an Error.  The set of kinds is closed: every failure
// returned by a Client operation carries one of them.
type Kind uint32

const (
	// KindUnknown is used for parameter errors from constructors and helpers
	// which are not part of a provider interaction.
	KindUnknown Kind = iota

	// KindCommunication means the provider could not be reached or returned
	// something other than HTTP 200 during discovery.
	KindCommunication

	// KindAuthentication means the authorization code flow failed: missing
	// or mismatched code/state, or a non-200 response from the token
	// endpoint.
	KindAuthentication

	// KindValidation means a token was structurally invalid, signed by an
	// unknown key, carried a bad signature, was expired, was issued for
	// another client or was missing a required claim.
	KindValidation

	// KindConfiguration means a discovery field required by the operation
	// was absent.
	KindConfiguration
)

// String returns a human readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindCommunication:
		return "communication error"
	case KindAuthentication:
		return "authentication error"
	case KindValidation:
		return "validation error"
	case KindConfiguration:
		return "configuration error"
	default:
		return "unknown error"
	}
}

var (
	ErrCommunication  = &Error{Kind: KindCommunication}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConfiguration  = &Error{Kind: KindConfiguration}

	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")
)

// Error is the error type returned by this package.  Use errors.Is with one of
// the Err{Kind} sentinels (ErrValidation, ErrAuthentication, etc) to test the
// kind, or errors.As to read the operation and message.
type Error struct {
	// Op is the operation which produced the error (for example:
	// "Client.ValidateToken").
	Op string

	// Kind of the error.
	Kind Kind

	// Msg is a description of the failure.
	Msg string

	// Wrapped is an optional underlying error.
	Wrapped error
}

var _ error = (*Error)(nil)

// NewError creates a new Error of the given kind.
// Supported options: WithOp, WithMsg, WithWrap
func NewError(k Kind, opt ...Option) error {
	opts := getErrOpts(opt...)
	return &Error{
		Op:      opts.withOp,
		Kind:    k,
		Msg:     opts.withMsg,
		Wrapped: opts.withWrap,
	}
}

// Error satisfies the error interface and returns a string of the form
// "op: msg: kind: wrapped".  Empty parts are omitted.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	parts = append(parts, e.Kind.String())
	if e.Wrapped != nil {
		parts = append(parts, e.Wrapped.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// Is reports whether target is an *Error of the same Kind.  A target with an
// Op or Msg must match those as well, which lets the Err{Kind} sentinels match
// any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	if t.Msg != "" && t.Msg != e.Msg {
		return false
	}
	return true
}

// errOptions is the set of available options for NewError
type errOptions struct {
	withOp   string
	withMsg  string
	withWrap error
}

func errDefaults() errOptions {
	return errOptions{}
}

func getErrOpts(opt ...Option) errOptions {
	opts := errDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithOp provides an optional operation name for an Error.
func WithOp(op string) Option {
	return func(o interface{}) {
		if o, ok := o.(*errOptions); ok {
			o.withOp = op
		}
	}
}

// WithMsg provides an optional message for an Error.
func WithMsg(msg string) Option {
	return func(o interface{}) {
		if o, ok := o.(*errOptions); ok {
			o.withMsg = msg
		}
	}
}

// WithWrap provides an optional wrapped error for an Error.
func WithWrap(e error) Option {
	return func(o interface{}) {
		if o, ok := o.(*errOptions); ok {
			o.withWrap = e
		}
	}
}

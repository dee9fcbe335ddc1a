// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of an external call.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// NotConfigured means credentials or target identifiers are missing.
	NotConfigured

	// TransportFailure covers network errors and non-success API responses.
	TransportFailure

	// EmptyResult means the call succeeded but produced nothing usable.
	EmptyResult

	// MalformedResponse means the response could not be decoded or lacked
	// an expected field.
	MalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case NotConfigured:
		return "not configured"
	case TransportFailure:
		return "transport failure"
	case EmptyResult:
		return "empty result"
	case MalformedResponse:
		return "malformed response"
	}
	return "unknown"
}

// SourceError is the error every adapter, the scraper, the warehouse sink
// and the answer generator return. Component names the failing component
// (a Source name, "scraper", "warehouse" or "answer").
type SourceError struct {
	Component string
	Kind      ErrorKind
	Err       error
}

// NewSourceError wraps err with a component name and kind.
func NewSourceError(component string, kind ErrorKind, err error) *SourceError {
	return &SourceError{Component: component, Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first SourceError in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

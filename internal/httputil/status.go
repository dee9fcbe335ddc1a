// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// KindForStatus maps a non-success HTTP status code to an error kind.
// Authentication failures mean credentials are missing or wrong, so they
// count as NotConfigured; every other status is a transport failure.
func KindForStatus(code int) types.ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NotConfigured
	}
	return types.TransportFailure
}

// NewClient returns an HTTP client bounded by cfg.Timeout.
func NewClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

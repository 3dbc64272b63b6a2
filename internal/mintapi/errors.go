package mintapi

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned before any request is attempted when the client
// was constructed without a credential. No Mint API call can succeed
// without one, so callers should surface this immediately rather than
// retry.
var ErrNoAPIKey = errors.New("mintapi: missing API key (set MINT_API_KEY)")

// APIError is a non-success HTTP response from the Mint API. The response
// body is retained (truncated to a few KiB) because upstream error
// messages usually name the offending parameter.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Path is the request path relative to the base URL.
	Path string

	// Body is the (possibly truncated) response body.
	Body string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("mintapi: GET %s: unexpected status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("mintapi: GET %s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

// TransportError wraps a network-level failure: connection refused, DNS
// resolution, TLS handshake, or timeout. The request never produced an
// HTTP response.
type TransportError struct {
	// Path is the request path relative to the base URL.
	Path string

	// Err is the underlying transport error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mintapi: GET %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Package model defines shared types for the relay.
package model

import (
	"io"
	"net/http"
)

// UpstreamResponse is the upstream answer to a relayed GET.
// Body must be closed by whoever ends up holding the response.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Success reports whether the upstream status is in the 2xx range.
func (r *UpstreamResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

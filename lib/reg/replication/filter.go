package replication

import (
	"net/http"
)

// Filter is a named outbound interceptor attached to a peer's replication
// client. The set of active filters is fixed when the peer manager is
// constructed.
type Filter interface {
	FilterName() string

	// Apply wraps next. The first filter in a chain sees the request first.
	Apply(next http.RoundTripper) http.RoundTripper
}

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (T RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return T(req)
}

var _ http.RoundTripper = RoundTripperFunc(nil)

// Chain wraps base with filters so that filters[0] is outermost.
func Chain(base http.RoundTripper, filters []Filter) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(filters) - 1; i >= 0; i-- {
		base = filters[i].Apply(base)
	}
	return base
}

package headers

import (
	"net/http"

	"github.com/caddyserver/caddy/v2"

	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func init() {
	caddy.RegisterModule((*Filter)(nil))
}

// Filter injects a static header set into every replication request.
type Filter struct {
	Headers map[string]string `json:"headers"`
}

func (T *Filter) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.replication.filters.headers",
		New: func() caddy.Module {
			return new(Filter)
		},
	}
}

func (T *Filter) FilterName() string {
	return "headers"
}

func (T *Filter) Apply(next http.RoundTripper) http.RoundTripper {
	return replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		for key, value := range T.Headers {
			req.Header.Set(key, value)
		}
		return next.RoundTrip(req)
	})
}

var _ replication.Filter = (*Filter)(nil)
var _ caddy.Module = (*Filter)(nil)

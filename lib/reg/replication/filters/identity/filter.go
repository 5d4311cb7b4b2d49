package identity

import (
	"net/http"
	"os"

	"github.com/caddyserver/caddy/v2"
	"github.com/google/uuid"

	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func init() {
	caddy.RegisterModule((*Filter)(nil))
}

// Filter stamps every replication request with the sending node's identity
// so peers can attribute traffic in their logs and metrics.
type Filter struct {
	// Name defaults to the local hostname.
	Name string `json:"name,omitempty"`

	Version string `json:"version,omitempty"`

	id string
}

func (T *Filter) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.replication.filters.identity",
		New: func() caddy.Module {
			return new(Filter)
		},
	}
}

func (T *Filter) Provision(ctx caddy.Context) error {
	if T.Name == "" {
		T.Name, _ = os.Hostname()
	}
	T.id = uuid.NewString()
	return nil
}

func (T *Filter) FilterName() string {
	return "identity"
}

func (T *Filter) Apply(next http.RoundTripper) http.RoundTripper {
	return replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req.Header.Set("X-Regat-Node-Name", T.Name)
		if T.Version != "" {
			req.Header.Set("X-Regat-Node-Version", T.Version)
		}
		req.Header.Set("X-Regat-Node-ID", T.id)
		return next.RoundTrip(req)
	})
}

var _ replication.Filter = (*Filter)(nil)
var _ caddy.Module = (*Filter)(nil)
var _ caddy.Provisioner = (*Filter)(nil)

package basic_auth

import (
	"errors"
	"net/http"

	"github.com/caddyserver/caddy/v2"

	"gfx.cafe/gfx/regat/lib/auth"
	"gfx.cafe/gfx/regat/lib/auth/credentials"
	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func init() {
	caddy.RegisterModule((*Filter)(nil))
}

// Filter authenticates replication requests with basic auth. Credentials
// come from the filter config; userinfo embedded in a peer URL wins when
// present.
type Filter struct {
	Username string `json:"username"`
	Password string `json:"password"`

	creds auth.CleartextClient
}

func (T *Filter) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.replication.filters.basic_auth",
		New: func() caddy.Module {
			return new(Filter)
		},
	}
}

func (T *Filter) Provision(ctx caddy.Context) error {
	creds := credentials.FromString(T.Username, T.Password)
	if creds == nil {
		return errors.New("basic_auth filter requires a username and password")
	}
	cleartext, ok := creds.(auth.CleartextClient)
	if !ok {
		// a stored SCRAM verifier can check passwords but not produce one
		return errors.New("basic_auth filter requires a cleartext password, not a stored verifier")
	}
	T.creds = cleartext
	return nil
}

func (T *Filter) FilterName() string {
	return "basic_auth"
}

func (T *Filter) Apply(next http.RoundTripper) http.RoundTripper {
	return replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if user := req.URL.User; user != nil {
			password, _ := user.Password()
			req.SetBasicAuth(user.Username(), password)
		} else {
			req.SetBasicAuth(T.Username, T.creds.EncodeCleartext())
		}
		return next.RoundTrip(req)
	})
}

var _ replication.Filter = (*Filter)(nil)
var _ caddy.Module = (*Filter)(nil)
var _ caddy.Provisioner = (*Filter)(nil)

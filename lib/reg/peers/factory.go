package peers

import (
	"net/http"
	"net/url"

	"gfx.cafe/gfx/regat/lib/instrumentation/prom"
	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/replication"
)

// Factory builds a peer node for a base URL. Construction never fails. A
// URL bad enough to be unusable still yields a node; its requests fail and
// are surfaced by the transport like any other peer error.
type Factory interface {
	Build(url string) *Node
}

type clientFactory struct {
	server    config.ServerConfig
	codecs    *codecs.Registry
	transport http.RoundTripper
	filters   []replication.Filter
}

// NewFactory returns the default factory: nodes speak the negotiated
// full-JSON codec through the supplied filter chain.
func NewFactory(
	server config.ServerConfig,
	registry *codecs.Registry,
	transport http.RoundTripper,
	filters []replication.Filter,
) Factory {
	return clientFactory{
		server:    server,
		codecs:    registry,
		transport: transport,
		filters:   filters,
	}
}

func (T clientFactory) Build(rawURL string) *Node {
	client := replication.NewClient(replication.ClientOptions{
		BaseURL:   rawURL,
		Codec:     T.codecs.FullJSON(T.server),
		Codecs:    T.codecs,
		Transport: T.transport,
		Filters:   T.filters,
		Timeout:   T.server.ReplicationTimeout.Duration(),
	})

	host := hostOf(rawURL)
	prom.Peers.Builds(prom.PeerLabels{TargetHost: host}).Inc()
	return NewNode(host, rawURL, client)
}

// hostOf extracts the hostname for the node's label. Unparseable or
// hostless URLs label as the literal "host".
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "host"
	}
	if host := u.Hostname(); host != "" {
		return host
	}
	return "host"
}

var _ Factory = clientFactory{}

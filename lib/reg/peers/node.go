package peers

import (
	"context"
	"time"

	"gfx.cafe/gfx/regat/lib/instrumentation/prom"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/monitors"
	"gfx.cafe/gfx/regat/lib/reg/replication"
)

// Node is one live peer of the cluster: the negotiated transport for a
// single base URL plus the host label used in logs and metrics.
type Node struct {
	host   string
	url    string
	client *replication.Client
}

func NewNode(host, url string, client *replication.Client) *Node {
	return &Node{
		host:   host,
		url:    url,
		client: client,
	}
}

// TargetHost labels the node in logs and metrics. It is the hostname parsed
// from the node's URL, or "host" when the URL has none.
func (T *Node) TargetHost() string {
	return T.host
}

func (T *Node) URL() string {
	return T.url
}

// FetchInstances downloads the peer's full registration set.
func (T *Node) FetchInstances(ctx context.Context) ([]instance.Info, error) {
	return T.client.FetchInstances(ctx)
}

// Replicate forwards one instance change to the peer.
func (T *Node) Replicate(ctx context.Context, action instance.Action, info instance.Info) error {
	labels := prom.ReplicationLabels{
		TargetHost: T.host,
		Action:     string(action),
	}
	monitors.ReplicationAttempts.Inc()
	start := time.Now()
	err := T.client.Replicate(ctx, action, info)
	prom.Replication.Latency(labels).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	if err != nil {
		prom.Replication.Failures(labels).Inc()
		monitors.ReplicationFailures.Inc()
	}
	return err
}

// Shutdown releases the node's connections. Called once the node has left
// the active set; in-flight requests on the old snapshot finish normally.
func (T *Node) Shutdown() {
	T.client.Close()
	prom.Peers.Shutdowns(prom.PeerLabels{TargetHost: T.host}).Inc()
}

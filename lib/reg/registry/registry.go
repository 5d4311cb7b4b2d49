package registry

import (
	"context"
	"errors"

	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/instance"
)

// ErrNoPeers reports that a fetch found no peer worth retrying: the set is
// empty or every member refused.
var ErrNoPeers = errors.New("no reachable peers")

// Registry is the storage/eviction engine the node orchestrates. Engines are
// external collaborators; the bootstrap controller only drives the calls
// below and never reaches into their internals.
type Registry interface {
	// SyncUp copies current registrations from a neighboring peer, blocking
	// until a best-effort count of instances has been stored. It returns 0
	// when no peer is reachable. Retry policy is the engine's own.
	SyncUp(ctx context.Context) int

	// OpenForTraffic marks the node eligible to serve discovery requests.
	// count is the instance count SyncUp reported.
	OpenForTraffic(ctx context.Context, count int) error

	Shutdown(ctx context.Context) error
}

// Peers is the engine's view of the cluster, implemented by the peer node
// set manager.
type Peers interface {
	// Fetch returns the registration set of the first peer that answers.
	Fetch(ctx context.Context) ([]instance.Info, error)

	// Replicate fans a local change out to every peer. Failures are the
	// peers' own to count and log; Replicate never blocks on retries.
	Replicate(ctx context.Context, action instance.Action, info instance.Info)
}

// PeerAware engines sync from and replicate through an attached peer set.
// The server context attaches the peer manager right after starting it.
type PeerAware interface {
	AttachPeers(peers Peers)
}

// HostAware engines receive the node's server tuning and local instance
// record before the bootstrap sequence runs.
type HostAware interface {
	AttachHost(server config.ServerConfig, local *instance.Local)
}

package reg

import (
	"context"

	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/peers"
	"gfx.cafe/gfx/regat/lib/reg/registry"
)

// ServerContext bundles the node's wired collaborators. It is what the
// holder publishes: embedders reach the codec table, the peer set and the
// engine through it.
type ServerContext struct {
	Server   config.ServerConfig
	Client   config.ClientProvider
	Local    *instance.Local
	Codecs   *codecs.Registry
	Peers    *peers.Manager
	Registry registry.Registry
}

// Initialize starts the peer manager: initial URL resolution, the source
// watch loop, and attachment to a peer-aware engine.
func (T *ServerContext) Initialize(ctx context.Context) error {
	return T.Peers.Start(ctx)
}

// Shutdown cascades: the peer manager stops first so nothing replicates
// into a closing engine, then the engine itself.
func (T *ServerContext) Shutdown(ctx context.Context) error {
	T.Peers.Shutdown()
	return T.Registry.Shutdown(ctx)
}

package peers

import (
	"context"

	"gfx.cafe/gfx/regat/lib/reg/config"
)

// Source supplies peer URLs from outside the static client configuration,
// such as DNS records or a cloud provider's instance inventory.
type Source interface {
	// URLs resolves the source's current peer base URLs.
	URLs(ctx context.Context) ([]string, error)

	// Updates returns a channel that receives a value whenever the source
	// knows its URLs changed, or nil if the source only supports polling.
	// The manager re-resolves every source on receipt; the payload is only
	// a hint.
	Updates() <-chan []string
}

// ClientAware sources resolve against the live client configuration. The
// app attaches the provider right after loading the source module.
type ClientAware interface {
	AttachClient(client config.ClientProvider)
}

package reg

import "context"

// Binder attaches the node to region-level addressing when it starts
// serving and detaches it on shutdown. A cloud node that cannot claim its
// address must not serve, so a Start failure aborts bootstrap.
type Binder interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

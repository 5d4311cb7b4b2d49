package reg

import "sync/atomic"

// The process-scoped handle embedders use to reach the running node when
// they cannot reach the app value itself.
var serverContext atomic.Pointer[ServerContext]

// PublishServerContext makes ctx the process-wide server context. The first
// publish wins. It reports whether ctx is now, or already was, the
// published context.
func PublishServerContext(ctx *ServerContext) bool {
	if serverContext.CompareAndSwap(nil, ctx) {
		return true
	}
	return serverContext.Load() == ctx
}

// RetractServerContext removes ctx from the holder if it is the published
// context. Retracting someone else's context is a no-op.
func RetractServerContext(ctx *ServerContext) {
	serverContext.CompareAndSwap(ctx, nil)
}

// CurrentServerContext returns the published context, or nil outside the
// serving window.
func CurrentServerContext() *ServerContext {
	return serverContext.Load()
}

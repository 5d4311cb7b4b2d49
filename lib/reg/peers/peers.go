package peers

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryann/difflib"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/instrumentation/prom"
	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/confwatch"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/registry"
	"gfx.cafe/gfx/regat/lib/reg/replication"
	"gfx.cafe/gfx/regat/lib/util/slices"
)

type Options struct {
	// Registry is the engine the node runs. A registry.PeerAware engine is
	// attached to the manager when the manager starts.
	Registry registry.Registry

	// Server is the node's fixed server-side tuning.
	Server config.ServerConfig

	// Client supplies the current client configuration. Each refresh re-reads
	// it, so overlaid values take effect without a restart.
	Client config.ClientProvider

	// Local supplies this node's own record; its hostname is dropped from
	// every resolution so a node never peers with itself.
	Local instance.Provider

	// Factory builds nodes. nil selects the default factory configured with
	// Codecs and Filters.
	Factory Factory

	// Codecs and Filters configure the default factory. Ignored when Factory
	// is set.
	Codecs  *codecs.Registry
	Filters []replication.Filter

	// Sources contribute peer URLs beyond the static configuration.
	Sources []Source

	Logger *zap.Logger
}

// Manager owns the peer node set. Membership is published as immutable
// snapshots behind an atomic pointer: readers never block and never observe
// a half-applied refresh.
type Manager struct {
	registry registry.Registry
	server   config.ServerConfig
	client   config.ClientProvider
	local    instance.Provider
	factory  Factory
	sources  []Source
	log      *zap.Logger

	// mu serializes writers; readers go through set alone.
	mu  sync.Mutex
	set atomic.Pointer[Set]

	closed    chan struct{}
	closeOnce sync.Once
}

func NewManager(options Options) *Manager {
	server := options.Server.WithDefaults()
	factory := options.Factory
	if factory == nil {
		factory = NewFactory(server, options.Codecs, nil, options.Filters)
	}
	log := options.Logger
	if log == nil {
		log = zap.NewNop()
	}

	manager := &Manager{
		registry: options.Registry,
		server:   server,
		client:   options.Client,
		local:    options.Local,
		factory:  factory,
		sources:  options.Sources,
		log:      log,
		closed:   make(chan struct{}),
	}
	manager.set.Store(emptySet)
	return manager
}

// Snapshot returns the current peer set. Hold the returned set for the whole
// of an operation to see a consistent membership.
func (T *Manager) Snapshot() *Set {
	return T.set.Load()
}

// ShouldRefresh reports whether a configuration change with the given keys
// invalidates the peer set. changed must not be nil; callers always know the
// changed keys, even when there are none.
//
// While DNS resolution is active the static keys are not consulted at all,
// so no change triggers a refresh.
func (T *Manager) ShouldRefresh(changed []string) bool {
	if changed == nil {
		panic("peers: refresh check requires the changed key set")
	}
	if T.client.ClientConfig().UseDNSForFetchingServiceURLs {
		return false
	}
	if slices.Contains(changed, config.KeyRegion) {
		return true
	}
	for _, key := range changed {
		if strings.HasPrefix(key, config.KeyServiceURLPrefix) ||
			strings.HasPrefix(key, config.KeyAvailabilityZonesPrefix) {
			return true
		}
	}
	return false
}

// HandleConfigChange re-resolves the peer set when the changed keys warrant
// it, per ShouldRefresh.
func (T *Manager) HandleConfigChange(event confwatch.ChangeEvent) {
	if !T.ShouldRefresh(event.Keys) {
		return
	}
	T.Refresh(context.Background())
}

// Refresh re-resolves peer URLs and applies the result.
func (T *Manager) Refresh(ctx context.Context) {
	T.Update(T.resolveURLs(ctx))
}

// resolveURLs computes the peer URL list: the configured URLs of each zone
// of the node's region, in configured order, then source-supplied URLs.
// Duplicates collapse to their first occurrence and the node's own URL is
// excluded by hostname.
func (T *Manager) resolveURLs(ctx context.Context) []string {
	client := T.client.ClientConfig()

	var urls []string
	if !client.UseDNSForFetchingServiceURLs {
		for _, zone := range client.ZonesForRegion(client.Region) {
			urls = append(urls, client.URLsForZone(zone)...)
		}
	}

	for _, source := range T.sources {
		resolved, err := source.URLs(ctx)
		if err != nil {
			T.log.Warn("resolving peer urls", zap.Error(err))
			continue
		}
		urls = append(urls, resolved...)
	}

	urls = slices.Unique(urls)

	self := T.local.Local().HostName
	if self == "" {
		return urls
	}
	kept := urls[:0]
	for _, url := range urls {
		if strings.EqualFold(hostOf(url), self) {
			continue
		}
		kept = append(kept, url)
	}
	return kept
}

// Update replaces the active set to match urls exactly: unchanged nodes are
// reused, added ones built, removed ones shut down. The next snapshot is
// published in a single store.
func (T *Manager) Update(urls []string) {
	T.mu.Lock()
	defer T.mu.Unlock()

	urls = slices.Unique(urls)
	old := T.set.Load()

	nodes := make([]*Node, 0, len(urls))
	for _, url := range urls {
		if node, ok := old.Lookup(url); ok {
			nodes = append(nodes, node)
			continue
		}
		nodes = append(nodes, T.factory.Build(url))
	}
	next := newSet(nodes)
	T.set.Store(next)

	prom.Peers.Refreshes(prom.NoLabels{}).Inc()
	prom.Peers.Current(prom.NoLabels{}).Set(float64(next.Len()))

	for _, record := range difflib.Diff(old.URLs(), next.URLs()) {
		if record.Delta == difflib.Common {
			continue
		}
		T.log.Info("peer set changed", zap.String("change", record.String()))
	}

	for _, node := range old.Nodes() {
		if _, ok := next.Lookup(node.URL()); !ok {
			node.Shutdown()
		}
	}
}

// Start attaches the manager to a peer-aware registry, resolves the initial
// set and begins watching sources and the reconcile clock. ctx bounds the
// watch loop.
func (T *Manager) Start(ctx context.Context) error {
	if aware, ok := T.registry.(registry.PeerAware); ok {
		aware.AttachPeers(T)
	}
	T.Refresh(ctx)
	go T.watch(ctx)
	return nil
}

func (T *Manager) watch(ctx context.Context) {
	notify := make(chan struct{}, 1)
	for _, source := range T.sources {
		updates := source.Updates()
		if updates == nil {
			continue
		}
		go func(updates <-chan []string) {
			for {
				select {
				case _, ok := <-updates:
					if !ok {
						return
					}
					select {
					case notify <- struct{}{}:
					default:
					}
				case <-T.closed:
					return
				case <-ctx.Done():
					return
				}
			}
		}(updates)
	}

	reconcile := time.NewTicker(T.server.PeerUpdateInterval.Duration())
	defer reconcile.Stop()

	for {
		select {
		case <-notify:
			T.Refresh(ctx)
		case <-reconcile.C:
			T.Refresh(ctx)
		case <-T.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops watching, publishes an empty set and shuts every node
// down. Safe to call more than once.
func (T *Manager) Shutdown() {
	T.closeOnce.Do(func() {
		close(T.closed)
	})

	T.mu.Lock()
	defer T.mu.Unlock()

	old := T.set.Swap(emptySet)
	prom.Peers.Current(prom.NoLabels{}).Set(0)
	for _, node := range old.Nodes() {
		node.Shutdown()
	}
}

// Fetch downloads the registration set of the first peer that answers,
// trying members in resolution order.
func (T *Manager) Fetch(ctx context.Context) ([]instance.Info, error) {
	set := T.Snapshot()
	for _, node := range set.Nodes() {
		infos, err := node.FetchInstances(ctx)
		if err != nil {
			T.log.Warn("fetching registrations from peer",
				zap.String("peer", node.TargetHost()),
				zap.Error(err),
			)
			continue
		}
		return infos, nil
	}
	return nil, registry.ErrNoPeers
}

// Replicate fans one local change out to every current peer. Each send is
// bounded by the node's request timeout; failures are counted and logged
// but never reach the local write path.
func (T *Manager) Replicate(ctx context.Context, action instance.Action, info instance.Info) {
	set := T.Snapshot()
	if set.Len() == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, node := range set.Nodes() {
		go func(node *Node) {
			if err := node.Replicate(ctx, action, info); err != nil {
				T.log.Warn("replicating to peer",
					zap.String("peer", node.TargetHost()),
					zap.String("action", string(action)),
					zap.Error(err),
				)
			}
		}(node)
	}
}

var _ registry.Peers = (*Manager)(nil)
var _ confwatch.Listener = (*Manager)(nil)

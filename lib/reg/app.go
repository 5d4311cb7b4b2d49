package reg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caddyserver/caddy/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/confwatch"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/monitors"
	"gfx.cafe/gfx/regat/lib/reg/peers"
	"gfx.cafe/gfx/regat/lib/reg/registry"
	"gfx.cafe/gfx/regat/lib/reg/replication"
	"gfx.cafe/gfx/regat/lib/reg/replication/filters/basic_auth"
	"gfx.cafe/gfx/regat/lib/util/fsm"
)

func init() {
	caddy.RegisterModule((*App)(nil))
}

// App is the registry node. It assembles the configured collaborators at
// provision time and owns the bootstrap sequence that takes them from
// UNINITIALIZED to SERVING and back down again.
type App struct {
	// Server tunes this node's server side.
	Server config.ServerConfig `json:"server,omitempty"`

	// Client configures how the node finds and talks to its peers.
	Client config.ClientConfig `json:"client,omitempty"`

	// Instance seeds the node's own registration record.
	Instance instance.Info `json:"instance,omitempty"`

	// PropertiesFile, when set, is watched for live client.* overrides.
	PropertiesFile string `json:"properties_file,omitempty"`

	// RegistryRaw selects the storage engine. Defaults to memory.
	RegistryRaw json.RawMessage `json:"registry,omitempty" caddy:"namespace=regat.registries inline_key=engine"`

	// BinderRaw selects a region binder, consulted only when the instance
	// reports a cloud datacenter.
	BinderRaw json.RawMessage `json:"binder,omitempty" caddy:"namespace=regat.binders inline_key=provider"`

	// SourcesRaw lists supplemental peer URL sources.
	SourcesRaw []json.RawMessage `json:"sources,omitempty" caddy:"namespace=regat.peers.sources inline_key=source"`

	// FiltersRaw lists replication transport filters, applied in order.
	FiltersRaw []json.RawMessage `json:"filters,omitempty" caddy:"namespace=regat.replication.filters inline_key=filter"`

	registry registry.Registry
	binder   Binder
	sources  []peers.Source
	filters  []replication.Filter

	env      config.Env
	local    *instance.Local
	client   config.ClientProvider
	codecs   *codecs.Registry
	peers    *peers.Manager
	watcher  *confwatch.Watcher
	monitors *monitors.Bundle
	server   *ServerContext

	lifecycle *fsm.Machine
	binderOn  bool

	ctx caddy.Context
	log *zap.Logger
}

func (T *App) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat",
		New: func() caddy.Module {
			return new(App)
		},
	}
}

func (T *App) Provision(ctx caddy.Context) error {
	T.ctx = ctx
	T.log = ctx.Logger()
	T.lifecycle = newLifecycle()

	// environment wins over file config
	T.env = config.LoadEnv()
	if T.env.Region != "" {
		T.Client.Region = T.env.Region
	}
	if T.env.NodeName != "" {
		T.Instance.HostName = T.env.NodeName
	}
	if T.env.Zone != "" {
		if T.Instance.Metadata == nil {
			T.Instance.Metadata = instance.Metadata{}
		}
		T.Instance.Metadata["zone"] = T.env.Zone
	}

	T.Server = T.Server.WithDefaults()
	if T.Client.RegisterWithPeers && T.Server.SyncRetries == 0 {
		T.Server.SyncRetries = 5
	}

	T.local = instance.NewLocal(T.Instance)

	T.codecs = codecs.NewRegistry()
	T.codecs.RegisterDefaults()

	T.client = config.StaticClient(T.Client)
	if T.PropertiesFile != "" {
		watcher, err := confwatch.NewWatcher(confwatch.Options{
			Path:   T.PropertiesFile,
			Base:   T.client,
			Logger: T.log,
		})
		if err != nil {
			return fmt.Errorf("creating properties watcher: %v", err)
		}
		T.watcher = watcher
		T.client = watcher
	}

	if T.FiltersRaw != nil {
		val, err := ctx.LoadModule(T, "FiltersRaw")
		if err != nil {
			return fmt.Errorf("loading filter module: %v", err)
		}
		for _, vv := range val.([]any) {
			T.filters = append(T.filters, vv.(replication.Filter))
		}
	}

	// client credentials authenticate replication; an explicitly configured
	// basic_auth filter wins over them
	if T.Client.Username != "" && !T.hasFilter("basic_auth") {
		filter := &basic_auth.Filter{
			Username: T.Client.Username,
			Password: T.Client.Password,
		}
		if err := filter.Provision(ctx); err != nil {
			return fmt.Errorf("configuring replication credentials: %v", err)
		}
		T.filters = append(T.filters, filter)
	}

	if T.SourcesRaw != nil {
		val, err := ctx.LoadModule(T, "SourcesRaw")
		if err != nil {
			return fmt.Errorf("loading source module: %v", err)
		}
		for _, vv := range val.([]any) {
			source := vv.(peers.Source)
			if aware, ok := source.(peers.ClientAware); ok {
				aware.AttachClient(T.client)
			}
			T.sources = append(T.sources, source)
		}
	}

	if T.RegistryRaw == nil {
		T.RegistryRaw = json.RawMessage(`{"engine":"memory"}`)
	}
	val, err := ctx.LoadModule(T, "RegistryRaw")
	if err != nil {
		return fmt.Errorf("loading registry module: %v", err)
	}
	T.registry = val.(registry.Registry)
	if aware, ok := T.registry.(registry.HostAware); ok {
		aware.AttachHost(T.Server, T.local)
	}

	if T.BinderRaw != nil {
		val, err := ctx.LoadModule(T, "BinderRaw")
		if err != nil {
			return fmt.Errorf("loading binder module: %v", err)
		}
		T.binder = val.(Binder)
	}

	T.peers = peers.NewManager(peers.Options{
		Registry: T.registry,
		Server:   T.Server,
		Client:   T.client,
		Local:    T.local,
		Codecs:   T.codecs,
		Filters:  T.filters,
		Sources:  T.sources,
		Logger:   T.log,
	})
	if T.watcher != nil {
		T.watcher.Subscribe(T.peers)
	}

	size := func() int { return 0 }
	if sizer, ok := T.registry.(interface{ Len() int }); ok {
		size = sizer.Len
	}
	T.monitors = monitors.NewBundle(size, func() int {
		return T.peers.Snapshot().Len()
	})

	T.server = &ServerContext{
		Server:   T.Server,
		Client:   T.client,
		Local:    T.local,
		Codecs:   T.codecs,
		Peers:    T.peers,
		Registry: T.registry,
	}

	return nil
}

// Start runs the bootstrap sequence. Any failure aborts startup: a node
// that cannot finish bootstrapping must not serve.
func (T *App) Start() error {
	if err := T.lifecycle.StateTransition(StateInitializing); err != nil {
		return fmt.Errorf("cannot bootstrap registry node: %w", err)
	}
	if err := T.bootstrap(T.ctx); err != nil {
		return fmt.Errorf("cannot bootstrap registry node: %w", err)
	}
	if err := T.lifecycle.StateTransition(StateServing); err != nil {
		return fmt.Errorf("cannot bootstrap registry node: %w", err)
	}
	T.log.Info("registry node started")
	return nil
}

func (T *App) bootstrap(ctx context.Context) error {
	// 1. environment state
	T.initEnvironment()

	// 2. legacy wire converters, idempotent
	T.codecs.RegisterConverter(codecs.LegacyStatusConverter{})

	// 3. region binding for cloud datacenters
	if T.binder != nil && T.local.Local().DataCenter.Name.Cloud() {
		if err := T.binder.Start(ctx); err != nil {
			return fmt.Errorf("starting binder: %w", err)
		}
		T.binderOn = true
	}

	// 4. server context up, then publish the handle
	if err := T.server.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing server context: %w", err)
	}
	if T.watcher != nil {
		if err := T.watcher.Start(); err != nil {
			return fmt.Errorf("watching properties: %w", err)
		}
	}
	PublishServerContext(T.server)

	// 5. seed from a peer, then open
	count := T.registry.SyncUp(ctx)
	if err := T.registry.OpenForTraffic(ctx, count); err != nil {
		return fmt.Errorf("opening for traffic: %w", err)
	}

	// 6. export the counters
	if err := T.monitors.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("registering monitors: %w", err)
	}
	return nil
}

// initEnvironment records what the node is running as. The overrides were
// already applied at provision time.
func (T *App) initEnvironment() {
	client := T.client.ClientConfig()
	T.log.Info("setting up environment",
		zap.String("region", client.Region),
		zap.String("zone", T.env.Zone),
		zap.String("node", T.local.Local().HostName),
	)
}

// Stop tears the node down. It never returns an error: each step is
// guarded on its own so the remaining steps always run.
func (T *App) Stop() error {
	if err := T.lifecycle.StateTransition(StateShuttingDown); err != nil {
		T.log.Warn("lifecycle transition", zap.Error(err))
	}
	T.log.Info("shutting down registry node")

	ctx := context.Background()

	RetractServerContext(T.server)

	if T.monitors != nil {
		T.monitors.Shutdown()
	}

	if T.binderOn && T.binder != nil {
		if err := T.binder.Shutdown(ctx); err != nil {
			T.log.Warn("shutting down binder", zap.Error(err))
		}
		T.binderOn = false
	}

	if T.watcher != nil {
		if err := T.watcher.Stop(); err != nil {
			T.log.Warn("stopping properties watcher", zap.Error(err))
		}
	}

	if T.server != nil {
		if err := T.server.Shutdown(ctx); err != nil {
			T.log.Warn("shutting down server context", zap.Error(err))
		}
	}

	if err := T.lifecycle.StateTransition(StateStopped); err != nil {
		T.log.Warn("lifecycle transition", zap.Error(err))
	}
	T.log.Info("registry node stopped")
	return nil
}

func (T *App) hasFilter(name string) bool {
	for _, filter := range T.filters {
		if filter.FilterName() == name {
			return true
		}
	}
	return false
}

// State returns the lifecycle phase the node is in.
func (T *App) State() string {
	return T.lifecycle.CurrentState()
}

// ServerContext returns the assembled collaborators.
func (T *App) ServerContext() *ServerContext {
	return T.server
}

var _ caddy.Module = (*App)(nil)
var _ caddy.Provisioner = (*App)(nil)
var _ caddy.App = (*App)(nil)

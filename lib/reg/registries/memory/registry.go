package memory

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"sync/atomic"
	"time"

	"github.com/caddyserver/caddy/v2"
	sha256 "github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/instrumentation/prom"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/monitors"
	"gfx.cafe/gfx/regat/lib/reg/registry"
	"gfx.cafe/gfx/regat/lib/util/maps"
)

func init() {
	caddy.RegisterModule((*Registry)(nil))
}

// Registry is the in-memory storage engine: one record per app/id key, the
// write with the newer dirty timestamp wins. There is no eviction; a record
// stays until it is cancelled.
type Registry struct {
	instances maps.RWLocked[string, instance.Info]

	server config.ServerConfig
	local  *instance.Local
	peers  registry.Peers

	expected atomic.Int64
	open     atomic.Bool

	log *zap.Logger
}

func (T *Registry) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.registries.memory",
		New: func() caddy.Module {
			return new(Registry)
		},
	}
}

func (T *Registry) Provision(ctx caddy.Context) error {
	T.log = ctx.Logger()
	return nil
}

// AttachHost supplies the node's tuning and local record. Runs during
// provisioning, before any traffic.
func (T *Registry) AttachHost(server config.ServerConfig, local *instance.Local) {
	T.server = server.WithDefaults()
	T.local = local
}

// AttachPeers supplies the cluster view. The peer manager attaches itself
// before the bootstrap sequence syncs up.
func (T *Registry) AttachPeers(peers registry.Peers) {
	T.peers = peers
}

// Register stores info. An existing record with a newer dirty timestamp is
// kept instead. Local writes fan out to peers; replicated ones do not.
func (T *Registry) Register(ctx context.Context, info instance.Info, replicated bool) {
	info = *info.Clone()
	now := time.Now().UnixMilli()
	if info.LastDirty == 0 {
		info.LastDirty = now
	}
	info.LastUpdated = now
	if info.Lease.RegistrationTimestamp == 0 {
		info.Lease.RegistrationTimestamp = now
	}

	stored := T.instances.Update(info.Key(), func(existing instance.Info, ok bool) (instance.Info, bool) {
		if ok && existing.LastDirty > info.LastDirty {
			return existing, false
		}
		return info, true
	})
	if !stored {
		T.log.Debug("kept newer record", zap.String("instance", info.Key()))
		return
	}

	monitors.Registrations.Inc()
	if !replicated {
		T.replicate(ctx, instance.ActionRegister, info)
	}
}

// Cancel removes the record for app/id and reports whether it was known.
func (T *Registry) Cancel(ctx context.Context, app, id string, replicated bool) bool {
	info, ok := T.instances.LoadAndDelete(app + "/" + id)
	if !ok {
		return false
	}

	monitors.Cancels.Inc()
	if !replicated {
		T.replicate(ctx, instance.ActionCancel, info)
	}
	return true
}

// Renew refreshes the lease for app/id. Unknown instances report false so
// the caller can re-register.
func (T *Registry) Renew(ctx context.Context, app, id string, replicated bool) bool {
	var renewed instance.Info
	ok := T.instances.Update(app+"/"+id, func(existing instance.Info, found bool) (instance.Info, bool) {
		if !found {
			return existing, false
		}
		existing.Lease.LastRenewalTimestamp = time.Now().UnixMilli()
		renewed = existing
		return existing, true
	})
	if !ok {
		return false
	}

	monitors.Renews.Inc()
	if !replicated {
		T.replicate(ctx, instance.ActionHeartbeat, renewed)
	}
	return true
}

// StatusUpdate overrides the status of app/id and bumps its dirty
// timestamp.
func (T *Registry) StatusUpdate(ctx context.Context, app, id string, status instance.Status, replicated bool) bool {
	var updated instance.Info
	now := time.Now().UnixMilli()
	ok := T.instances.Update(app+"/"+id, func(existing instance.Info, found bool) (instance.Info, bool) {
		if !found {
			return existing, false
		}
		existing.Status = status
		existing.OverriddenStatus = status
		existing.LastUpdated = now
		existing.LastDirty = now
		updated = existing
		return existing, true
	})
	if !ok {
		return false
	}

	if !replicated {
		T.replicate(ctx, instance.ActionStatusUpdate, updated)
	}
	return true
}

func (T *Registry) replicate(ctx context.Context, action instance.Action, info instance.Info) {
	if T.peers == nil {
		return
	}
	T.peers.Replicate(ctx, action, info)
}

// SyncUp copies the registration set of the first peer that answers,
// retrying up to the configured count with the configured wait between
// attempts. It returns how many records were stored; 0 means the node
// starts with an empty registry.
func (T *Registry) SyncUp(ctx context.Context) int {
	count := 0
	for attempt := 0; attempt < T.server.SyncRetries && count == 0; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(T.server.SyncRetryWait.Duration()):
			case <-ctx.Done():
				return count
			}
		}

		prom.Sync.Attempts(prom.NoLabels{}).Inc()
		infos, err := T.fetch(ctx)
		if err != nil {
			T.log.Warn("sync-up attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		for _, info := range infos {
			T.Register(ctx, info, true)
			count++
		}
	}

	prom.Sync.Instances(prom.NoLabels{}).Add(float64(count))
	T.log.Info("sync-up finished", zap.Int("instances", count))
	return count
}

func (T *Registry) fetch(ctx context.Context) ([]instance.Info, error) {
	if T.peers == nil {
		return nil, registry.ErrNoPeers
	}
	return T.peers.Fetch(ctx)
}

// OpenForTraffic records the seeded count and marks the node eligible to
// serve; the local instance goes UP.
func (T *Registry) OpenForTraffic(ctx context.Context, count int) error {
	T.expected.Store(int64(count))
	T.open.Store(true)
	if T.local != nil {
		T.local.SetStatus(instance.StatusUp)
	}
	T.log.Info("registry open for traffic",
		zap.Int("seeded", count),
		zap.String("digest", T.Digest()),
	)
	return nil
}

// Shutdown closes the registry for traffic and marks the local instance
// DOWN. Stored records are kept; the process is ending anyway.
func (T *Registry) Shutdown(ctx context.Context) error {
	T.open.Store(false)
	if T.local != nil {
		T.local.SetStatus(instance.StatusDown)
	}
	T.log.Info("registry shut down", zap.Int("instances", T.instances.Len()))
	return nil
}

// Open reports whether OpenForTraffic has run and Shutdown has not.
func (T *Registry) Open() bool {
	return T.open.Load()
}

// Expected returns the count SyncUp seeded, as recorded by OpenForTraffic.
func (T *Registry) Expected() int {
	return int(T.expected.Load())
}

func (T *Registry) Len() int {
	return T.instances.Len()
}

// Lookup returns a copy of the record stored for app/id.
func (T *Registry) Lookup(app, id string) (instance.Info, bool) {
	info, ok := T.instances.Load(app + "/" + id)
	if ok {
		info = *info.Clone()
	}
	return info, ok
}

// Instances returns a point-in-time copy of every record, ordered by key.
func (T *Registry) Instances() []instance.Info {
	out := make([]instance.Info, 0, T.instances.Len())
	T.instances.Range(func(_ string, value instance.Info) bool {
		out = append(out, *value.Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Digest hashes every record's key, dirty timestamp and status in key
// order. Nodes holding identical registration sets produce identical
// digests, which makes divergence cheap to spot.
func (T *Registry) Digest() string {
	h := sha256.New()
	var buf [8]byte
	for _, info := range T.Instances() {
		h.Write([]byte(info.Key()))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(info.LastDirty))
		h.Write(buf[:])
		h.Write([]byte(info.Status))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ caddy.Module = (*Registry)(nil)
var _ caddy.Provisioner = (*Registry)(nil)
var _ registry.Registry = (*Registry)(nil)
var _ registry.PeerAware = (*Registry)(nil)
var _ registry.HostAware = (*Registry)(nil)

package instance

import (
	"encoding/xml"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"gfx.cafe/gfx/regat/lib/util/dur"
)

type DataCenterInfo struct {
	Name DataCenterName `json:"name" xml:"name"`
}

type LeaseInfo struct {
	RenewalInterval dur.Duration `json:"renewal_interval,omitempty" xml:"renewal-interval,omitempty"`
	Duration        dur.Duration `json:"duration,omitempty" xml:"duration,omitempty"`

	RegistrationTimestamp int64 `json:"registration_timestamp,omitempty" xml:"registration-timestamp,omitempty"`
	LastRenewalTimestamp  int64 `json:"last_renewal_timestamp,omitempty" xml:"last-renewal-timestamp,omitempty"`
}

// Info is one instance registration as exchanged with peers and clients.
// Timestamps are unix milliseconds.
type Info struct {
	XMLName xml.Name `json:"-" xml:"instance"`

	ID       string `json:"id" xml:"id"`
	App      string `json:"app" xml:"app"`
	HostName string `json:"host_name,omitempty" xml:"host-name,omitempty"`
	IPAddr   string `json:"ip_addr,omitempty" xml:"ip-addr,omitempty"`

	Port       int `json:"port,omitempty" xml:"port,omitempty"`
	SecurePort int `json:"secure_port,omitempty" xml:"secure-port,omitempty"`

	Status           Status `json:"status" xml:"status"`
	OverriddenStatus Status `json:"overridden_status,omitempty" xml:"overridden-status,omitempty"`

	DataCenter DataCenterInfo `json:"data_center" xml:"data-center"`
	Lease      LeaseInfo      `json:"lease,omitempty" xml:"lease,omitempty"`
	Metadata   Metadata       `json:"metadata,omitempty" xml:"metadata,omitempty"`

	LastUpdated int64 `json:"last_updated,omitempty" xml:"last-updated,omitempty"`
	LastDirty   int64 `json:"last_dirty,omitempty" xml:"last-dirty,omitempty"`
}

// WithDefaults fills the fields a bare config may leave empty.
func (T Info) WithDefaults() Info {
	if T.ID == "" {
		T.ID = uuid.NewString()
	}
	if T.HostName == "" {
		T.HostName, _ = os.Hostname()
	}
	if T.App == "" {
		T.App = "unknown"
	}
	if T.Status == "" {
		T.Status = StatusStarting
	}
	if T.DataCenter.Name == "" {
		T.DataCenter.Name = DataCenterLocal
	}
	return T
}

// Key identifies the instance within its app.
func (T *Info) Key() string {
	return T.App + "/" + T.ID
}

// Clone returns a deep copy of the instance record.
func (T *Info) Clone() *Info {
	info := *T
	if T.Metadata != nil {
		info.Metadata = make(Metadata, len(T.Metadata))
		for k, v := range T.Metadata {
			info.Metadata[k] = v
		}
	}
	return &info
}

// Provider supplies the local node's own instance record.
type Provider interface {
	Local() Info
}

// Local is the mutable holder for this node's instance record. Reads get a
// copy. Only the bootstrap controller flips the status.
type Local struct {
	mu   sync.RWMutex
	info Info
}

func NewLocal(info Info) *Local {
	return &Local{info: info.WithDefaults()}
}

func (T *Local) Local() Info {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return *T.info.Clone()
}

func (T *Local) SetStatus(status Status) {
	T.mu.Lock()
	defer T.mu.Unlock()
	if T.info.Status == status {
		return
	}
	T.info.Status = status
	now := time.Now().UnixMilli()
	T.info.LastUpdated = now
	T.info.LastDirty = now
}

var _ Provider = (*Local)(nil)

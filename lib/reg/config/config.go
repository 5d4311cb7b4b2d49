package config

import (
	"time"

	"gfx.cafe/gfx/regat/lib/util/dur"
)

// Configuration keys consulted by the peer refresh policy and the properties
// overlay. Case-sensitive.
const (
	KeyUseDNS                  = "client.use-dns-for-fetching-service-urls"
	KeyRegion                  = "client.region"
	KeyServiceURLPrefix        = "client.service-url."
	KeyAvailabilityZonesPrefix = "client.availability-zones."
)

// DefaultZone is used when a region has no zones configured.
const DefaultZone = "default"

// ServerConfig is an immutable snapshot of the node's server-side tuning,
// read once at construction.
type ServerConfig struct {
	// JSONCodecName and XMLCodecName select the full-format codecs. Unknown
	// names silently fall back to the built-in defaults.
	JSONCodecName string `json:"json_codec_name,omitempty"`
	XMLCodecName  string `json:"xml_codec_name,omitempty"`

	// SyncRetries bounds how many times startup sync-up retries reaching a
	// peer before the node settles for an empty registry.
	SyncRetries   int          `json:"sync_retries,omitempty"`
	SyncRetryWait dur.Duration `json:"sync_retry_wait,omitempty"`

	ReplicationTimeout dur.Duration `json:"replication_timeout,omitempty"`

	// PeerUpdateInterval paces the background reconcile that re-resolves
	// peer URLs even when no configuration change arrives.
	PeerUpdateInterval dur.Duration `json:"peer_update_interval,omitempty"`
}

func (T ServerConfig) WithDefaults() ServerConfig {
	if T.SyncRetryWait == 0 {
		T.SyncRetryWait = dur.Duration(30 * time.Second)
	}
	if T.ReplicationTimeout == 0 {
		T.ReplicationTimeout = dur.Duration(5 * time.Second)
	}
	if T.PeerUpdateInterval == 0 {
		T.PeerUpdateInterval = dur.Duration(10 * time.Minute)
	}
	return T
}

type DNSConfig struct {
	// Domain is the discovery domain; peer URLs are resolved from TXT
	// records below "txt.<region>.<domain>".
	Domain       string       `json:"domain,omitempty"`
	Port         int          `json:"port,omitempty"`
	PollInterval dur.Duration `json:"poll_interval,omitempty"`
}

// ClientConfig is an immutable snapshot of peer-resolution settings: how the
// node finds its cluster peers and how it talks to them.
type ClientConfig struct {
	// UseDNSForFetchingServiceURLs switches peer resolution from the static
	// zone/url maps to DNS polling. While set, configuration changes never
	// trigger a peer refresh.
	UseDNSForFetchingServiceURLs bool `json:"use_dns_for_fetching_service_urls,omitempty"`

	// RegisterWithPeers marks this node as registering itself with its
	// peers, which raises the startup sync retry count.
	RegisterWithPeers bool `json:"register_with_peers,omitempty"`

	Region string `json:"region,omitempty"`

	// AvailabilityZones maps a region to its zones, in preference order.
	AvailabilityZones map[string][]string `json:"availability_zones,omitempty"`

	// ServiceURLs maps a zone to the peer base URLs it hosts.
	ServiceURLs map[string][]string `json:"service_urls,omitempty"`

	// Username and Password authenticate outbound replication. Password may
	// be a stored SCRAM-SHA-256 verifier.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	DNS DNSConfig `json:"dns,omitempty"`
}

// ZonesForRegion returns the configured zones for region, or the default
// zone when none are configured.
func (T ClientConfig) ZonesForRegion(region string) []string {
	zones := T.AvailabilityZones[region]
	if len(zones) == 0 {
		return []string{DefaultZone}
	}
	return zones
}

func (T ClientConfig) URLsForZone(zone string) []string {
	return T.ServiceURLs[zone]
}

// ClientProvider returns the current client configuration. Static setups
// always return the same snapshot; dynamic-config sources overlay live
// values so a refresh observes current state.
type ClientProvider interface {
	ClientConfig() ClientConfig
}

type staticClient struct {
	config ClientConfig
}

func (T staticClient) ClientConfig() ClientConfig {
	return T.config
}

// StaticClient wraps a fixed ClientConfig in a ClientProvider.
func StaticClient(config ClientConfig) ClientProvider {
	return staticClient{config: config}
}

var _ ClientProvider = staticClient{}

package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

type PeerLabels struct {
	TargetHost string `label:"target_host"`
}

var Peers struct {
	Refreshes func(NoLabels) prometheus.Counter    `name:"refreshes" help:"peer set refreshes applied"`
	Builds    func(PeerLabels) prometheus.Counter  `name:"builds" help:"peer nodes constructed"`
	Shutdowns func(PeerLabels) prometheus.Counter  `name:"shutdowns" help:"peer nodes torn down"`
	Current   func(NoLabels) prometheus.Gauge      `name:"current" help:"peer nodes in the active set"`
}

type ReplicationLabels struct {
	TargetHost string `label:"target_host"`
	Action     string `label:"action"`
}

var Replication struct {
	Latency  func(ReplicationLabels) prometheus.Histogram `name:"latency_ms" buckets:"1,5,10,30,75,150,300,500,1000,2000,5000" help:"ms per replication request"`
	Failures func(ReplicationLabels) prometheus.Counter   `name:"failures" help:"replication requests that failed"`
}

var Sync struct {
	Attempts  func(NoLabels) prometheus.Counter `name:"attempts" help:"startup sync-up attempts"`
	Instances func(NoLabels) prometheus.Counter `name:"instances" help:"instances copied during sync-up"`
}

type NoLabels struct{}

func init() {
	gotoprom.MustInit(&Peers, "regat_peers", prometheus.Labels{})
	gotoprom.MustInit(&Replication, "regat_replication", prometheus.Labels{})
	gotoprom.MustInit(&Sync, "regat_sync", prometheus.Labels{})
}

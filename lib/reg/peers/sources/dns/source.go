package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/miekg/dns"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/peers"
	"gfx.cafe/gfx/regat/lib/util/slices"
)

func init() {
	caddy.RegisterModule((*Source)(nil))
}

// DefaultPort is assumed for TXT records that carry a bare hostname
// instead of a URL.
const DefaultPort = 8761

// Source resolves peer URLs from TXT records. The walk is two levels:
// txt.<region>.<domain> lists zone records, and txt.<zone record> lists the
// peers of that zone, either full URLs or bare hostnames.
//
// The source is inert while the client config has DNS resolution off.
type Source struct {
	// Resolver is the host:port of the DNS server to query. Defaults to the
	// system resolver.
	Resolver string `json:"resolver,omitempty"`

	client config.ClientProvider
	dns    *dns.Client

	updates  chan []string
	closed   chan struct{}
	pollOnce sync.Once

	log *zap.Logger
}

func (T *Source) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.peers.sources.dns",
		New: func() caddy.Module {
			return new(Source)
		},
	}
}

func (T *Source) Provision(ctx caddy.Context) error {
	T.log = ctx.Logger()
	T.dns = new(dns.Client)

	if T.Resolver == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return fmt.Errorf("loading resolver config: %v", err)
		}
		if len(conf.Servers) == 0 {
			return errors.New("no resolver configured")
		}
		T.Resolver = net.JoinHostPort(conf.Servers[0], conf.Port)
	}

	T.updates = make(chan []string, 1)
	T.closed = make(chan struct{})
	return nil
}

func (T *Source) Cleanup() error {
	close(T.closed)
	return nil
}

// AttachClient hands over the live client configuration and starts the poll
// loop.
func (T *Source) AttachClient(client config.ClientProvider) {
	T.client = client
	T.pollOnce.Do(func() {
		go T.poll()
	})
}

// URLs walks the TXT records for the node's region. It resolves to nothing,
// without error, while DNS resolution is off or no client is attached.
func (T *Source) URLs(ctx context.Context) ([]string, error) {
	if T.client == nil {
		return nil, nil
	}
	client := T.client.ClientConfig()
	if !client.UseDNSForFetchingServiceURLs {
		return nil, nil
	}
	if client.DNS.Domain == "" {
		return nil, errors.New("dns domain is not configured")
	}

	zones, err := T.txt(ctx, "txt."+client.Region+"."+client.DNS.Domain)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, zone := range zones {
		records, err := T.txt(ctx, "txt."+zone)
		if err != nil {
			T.log.Warn("resolving zone record",
				zap.String("zone", zone),
				zap.Error(err),
			)
			continue
		}
		for _, record := range records {
			urls = append(urls, recordURL(client, record))
		}
	}
	return urls, nil
}

func (T *Source) Updates() <-chan []string {
	return T.updates
}

func (T *Source) txt(ctx context.Context, name string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)

	r, _, err := T.dns.ExchangeContext(ctx, m, T.Resolver)
	if err != nil {
		return nil, err
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("querying %s: %s", name, dns.RcodeToString[r.Rcode])
	}

	var records []string
	for _, answer := range r.Answer {
		txt, ok := answer.(*dns.TXT)
		if !ok {
			continue
		}
		records = append(records, txt.Txt...)
	}
	return records, nil
}

// poll re-walks the records on the configured interval and pushes the list
// when it changes.
func (T *Source) poll() {
	var last []string
	for {
		select {
		case <-time.After(T.interval()):
		case <-T.closed:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		urls, err := T.URLs(ctx)
		cancel()
		if err != nil {
			T.log.Warn("polling peer urls", zap.Error(err))
			continue
		}
		if slices.Equal(urls, last) {
			continue
		}
		last = urls

		select {
		case T.updates <- urls:
		default:
		}
	}
}

func (T *Source) interval() time.Duration {
	if T.client != nil {
		if d := T.client.ClientConfig().DNS.PollInterval.Duration(); d > 0 {
			return d
		}
	}
	return 5 * time.Minute
}

// recordURL turns one TXT record into a peer base URL. Records that already
// carry a scheme pass through; bare hostnames get the configured port.
func recordURL(client config.ClientConfig, record string) string {
	if strings.Contains(record, "://") {
		return record
	}
	port := client.DNS.Port
	if port == 0 {
		port = DefaultPort
	}
	return "http://" + net.JoinHostPort(record, strconv.Itoa(port)) + "/"
}

var _ peers.Source = (*Source)(nil)
var _ peers.ClientAware = (*Source)(nil)
var _ caddy.Module = (*Source)(nil)
var _ caddy.Provisioner = (*Source)(nil)
var _ caddy.CleanerUpper = (*Source)(nil)

package dns

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/reg/config"
)

func txtAnswer(req *dns.Msg, records ...string) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Answer = append(m.Answer, &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   req.Question[0].Name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    60,
		},
		Txt: records,
	})
	return m
}

// testResolver serves the given TXT records from a local DNS server and
// returns its address.
func testResolver(t *testing.T, records map[string][]string) string {
	t.Helper()

	mux := dns.NewServeMux()
	for name, values := range records {
		values := values
		mux.HandleFunc(name, func(w dns.ResponseWriter, r *dns.Msg) {
			_ = w.WriteMsg(txtAnswer(r, values...))
		})
	}

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := &dns.Server{PacketConn: pc, Handler: mux}
	go func() {
		_ = server.ActivateAndServe()
	}()
	t.Cleanup(func() {
		_ = server.Shutdown()
	})
	return pc.LocalAddr().String()
}

func testSource(resolver string, client config.ClientConfig) *Source {
	return &Source{
		Resolver: resolver,
		client:   config.StaticClient(client),
		dns:      new(dns.Client),
		log:      zap.NewNop(),
	}
}

func TestURLs_WalksRegionAndZones(t *testing.T) {
	resolver := testResolver(t, map[string][]string{
		"txt.us-east-1.disco.test.":        {"zone-a.us-east-1.disco.test", "zone-b.us-east-1.disco.test"},
		"txt.zone-a.us-east-1.disco.test.": {"peer1.test", "http://peer2.test:9761/"},
		"txt.zone-b.us-east-1.disco.test.": {"peer3.test"},
	})

	source := testSource(resolver, config.ClientConfig{
		UseDNSForFetchingServiceURLs: true,
		Region:                       "us-east-1",
		DNS:                          config.DNSConfig{Domain: "disco.test"},
	})

	urls, err := source.URLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"http://peer1.test:8761/",
		"http://peer2.test:9761/",
		"http://peer3.test:8761/",
	}
	if len(urls) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, urls)
	}
	for i := range expected {
		if urls[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, urls)
		}
	}
}

func TestURLs_SkipsUnresolvableZones(t *testing.T) {
	// zone-b has no record; its failure must not hide zone-a
	resolver := testResolver(t, map[string][]string{
		"txt.us-east-1.disco.test.":        {"zone-a.us-east-1.disco.test", "zone-b.us-east-1.disco.test"},
		"txt.zone-a.us-east-1.disco.test.": {"peer1.test"},
	})

	source := testSource(resolver, config.ClientConfig{
		UseDNSForFetchingServiceURLs: true,
		Region:                       "us-east-1",
		DNS:                          config.DNSConfig{Domain: "disco.test"},
	})

	urls, err := source.URLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "http://peer1.test:8761/" {
		t.Errorf("expected the resolvable zone only, got %v", urls)
	}
}

func TestURLs_InertWhileDNSModeOff(t *testing.T) {
	source := testSource("127.0.0.1:1", config.ClientConfig{})
	urls, err := source.URLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if urls != nil {
		t.Errorf("expected no resolution while dns mode is off, got %v", urls)
	}
}

func TestURLs_NoClientAttached(t *testing.T) {
	source := &Source{dns: new(dns.Client), log: zap.NewNop()}
	urls, err := source.URLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if urls != nil {
		t.Errorf("expected nothing without a client, got %v", urls)
	}
}

func TestURLs_RequiresDomain(t *testing.T) {
	source := testSource("127.0.0.1:1", config.ClientConfig{
		UseDNSForFetchingServiceURLs: true,
		Region:                       "us-east-1",
	})
	if _, err := source.URLs(context.Background()); err == nil {
		t.Error("expected a missing domain to error")
	}
}

func TestRecordURL(t *testing.T) {
	cases := []struct {
		record   string
		port     int
		expected string
	}{
		{"http://peer1.test:9761/", 0, "http://peer1.test:9761/"},
		{"https://peer1.test/", 0, "https://peer1.test/"},
		{"peer1.test", 0, "http://peer1.test:8761/"},
		{"peer1.test", 9000, "http://peer1.test:9000/"},
	}
	for _, c := range cases {
		client := config.ClientConfig{DNS: config.DNSConfig{Port: c.port}}
		if url := recordURL(client, c.record); url != c.expected {
			t.Errorf("%q: expected %q, got %q", c.record, c.expected, url)
		}
	}
}

package peers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/reg/confwatch"
	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/reg/registry"
	"gfx.cafe/gfx/regat/lib/reg/replication"
	"gfx.cafe/gfx/regat/lib/util/slices"
)

// closeCounter counts CloseIdleConnections calls so a test can observe a
// node being shut down.
type closeCounter struct {
	http.RoundTripper
	closes int
}

func (T *closeCounter) CloseIdleConnections() {
	T.closes++
}

type fakeFactory struct {
	built   []string
	closers map[string]*closeCounter
}

func (T *fakeFactory) Build(url string) *Node {
	closer := new(closeCounter)
	if T.closers == nil {
		T.closers = make(map[string]*closeCounter)
	}
	T.closers[url] = closer
	T.built = append(T.built, url)

	return NewNode(hostOf(url), url, replication.NewClient(replication.ClientOptions{
		BaseURL:   url,
		Transport: closer,
	}))
}

type fakeSource struct {
	urls []string
	err  error
}

func (T *fakeSource) URLs(context.Context) ([]string, error) {
	return T.urls, T.err
}

func (T *fakeSource) Updates() <-chan []string {
	return nil
}

type pushSource struct {
	mu      sync.Mutex
	urls    []string
	updates chan []string
}

func (T *pushSource) URLs(context.Context) ([]string, error) {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.urls, nil
}

func (T *pushSource) Updates() <-chan []string {
	return T.updates
}

func (T *pushSource) set(urls []string) {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.urls = urls
}

func testManager(client config.ClientConfig, factory Factory, sources ...Source) *Manager {
	return NewManager(Options{
		Client:  config.StaticClient(client),
		Local:   instance.NewLocal(instance.Info{App: "regat", HostName: "self.test"}),
		Factory: factory,
		Sources: sources,
	})
}

func TestHostOf(t *testing.T) {
	cases := []struct {
		url  string
		host string
	}{
		{"http://peer1:8761/", "peer1"},
		{"http://peer1/", "peer1"},
		{"https://10.0.0.4:8761/registry/", "10.0.0.4"},
		{"://missing-scheme", "host"},
		{"/relative/path", "host"},
	}
	for _, c := range cases {
		if got := hostOf(c.url); got != c.host {
			t.Errorf("%q: expected %q, got %q", c.url, c.host, got)
		}
	}
}

func TestShouldRefresh(t *testing.T) {
	manager := testManager(config.ClientConfig{Region: "us-east-1"}, new(fakeFactory))

	cases := []struct {
		name    string
		changed []string
		want    bool
	}{
		{"empty", []string{}, false},
		{"region", []string{"client.region"}, true},
		{"service url", []string{"client.service-url.zone-a"}, true},
		{"availability zones", []string{"client.availability-zones.us-east-1"}, true},
		{"unrelated", []string{"client.username", "server.sync-retries"}, false},
	}
	for _, c := range cases {
		if got := manager.ShouldRefresh(c.changed); got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestShouldRefresh_DNSMode(t *testing.T) {
	manager := testManager(config.ClientConfig{UseDNSForFetchingServiceURLs: true}, new(fakeFactory))
	if manager.ShouldRefresh([]string{"client.region"}) {
		t.Error("dns mode must never refresh from a config change")
	}
}

func TestShouldRefresh_NilKeys(t *testing.T) {
	manager := testManager(config.ClientConfig{}, new(fakeFactory))
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a nil key set")
		}
	}()
	manager.ShouldRefresh(nil)
}

func TestUpdate_ReusesSurvivingNodes(t *testing.T) {
	factory := new(fakeFactory)
	manager := testManager(config.ClientConfig{}, factory)

	manager.Update([]string{"http://a:8761/", "http://b:8761/"})
	before := manager.Snapshot()
	if before.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", before.Len())
	}

	manager.Update([]string{"http://b:8761/", "http://c:8761/"})
	after := manager.Snapshot()
	if after.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", after.Len())
	}

	survivorBefore, _ := before.Lookup("http://b:8761/")
	survivorAfter, _ := after.Lookup("http://b:8761/")
	if survivorBefore != survivorAfter {
		t.Error("expected the surviving node to be reused")
	}
	if len(factory.built) != 3 {
		t.Errorf("expected 3 builds, got %d", len(factory.built))
	}

	// the removed node is shut down, the survivor is not
	if factory.closers["http://a:8761/"].closes != 1 {
		t.Error("expected the removed node to be shut down")
	}
	if factory.closers["http://b:8761/"].closes != 0 {
		t.Error("the surviving node must not be shut down")
	}

	// the old snapshot still shows the old membership
	if _, ok := before.Lookup("http://a:8761/"); !ok {
		t.Error("an old snapshot must keep its membership")
	}
}

func TestUpdate_Dedupes(t *testing.T) {
	manager := testManager(config.ClientConfig{}, new(fakeFactory))
	manager.Update([]string{"http://a:8761/", "http://a:8761/"})
	if n := manager.Snapshot().Len(); n != 1 {
		t.Errorf("expected 1 node, got %d", n)
	}
}

func TestSnapshot_NeverMixed(t *testing.T) {
	manager := testManager(config.ClientConfig{}, new(fakeFactory))

	first := []string{"http://a1:8761/", "http://a2:8761/"}
	second := []string{"http://b1:8761/", "http://b2:8761/"}
	manager.Update(first)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				urls := manager.Snapshot().URLs()
				if !slices.Equal(urls, first) && !slices.Equal(urls, second) {
					t.Errorf("observed a mixed peer set: %v", urls)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			manager.Update(second)
		} else {
			manager.Update(first)
		}
	}
	close(done)
	wg.Wait()
}

func TestRefresh_ZoneOrderAndSelfExclusion(t *testing.T) {
	factory := new(fakeFactory)
	manager := testManager(config.ClientConfig{
		Region: "us-east-1",
		AvailabilityZones: map[string][]string{
			"us-east-1": {"zone-b", "zone-a"},
		},
		ServiceURLs: map[string][]string{
			"zone-b": {"http://b1:8761/", "http://self.test:8761/"},
			"zone-a": {"http://a1:8761/"},
		},
	}, factory)

	manager.Refresh(context.Background())

	urls := manager.Snapshot().URLs()
	expected := []string{"http://b1:8761/", "http://a1:8761/"}
	if !slices.Equal(urls, expected) {
		t.Errorf("expected %v, got %v", expected, urls)
	}
}

func TestRefresh_UnknownRegionFallsBackToDefaultZone(t *testing.T) {
	manager := testManager(config.ClientConfig{
		Region: "eu-west-1",
		ServiceURLs: map[string][]string{
			config.DefaultZone: {"http://d1:8761/"},
		},
	}, new(fakeFactory))

	manager.Refresh(context.Background())

	if !slices.Equal(manager.Snapshot().URLs(), []string{"http://d1:8761/"}) {
		t.Errorf("expected the default zone urls, got %v", manager.Snapshot().URLs())
	}
}

func TestRefresh_DNSModeSkipsStaticConfig(t *testing.T) {
	source := &fakeSource{urls: []string{"http://dns1:8761/"}}
	manager := testManager(config.ClientConfig{
		UseDNSForFetchingServiceURLs: true,
		ServiceURLs: map[string][]string{
			config.DefaultZone: {"http://static:8761/"},
		},
	}, new(fakeFactory), source)

	manager.Refresh(context.Background())

	if !slices.Equal(manager.Snapshot().URLs(), []string{"http://dns1:8761/"}) {
		t.Errorf("expected only source urls, got %v", manager.Snapshot().URLs())
	}
}

func TestRefresh_SourceErrorKeepsOthers(t *testing.T) {
	bad := &fakeSource{err: errors.New("api unavailable")}
	good := &fakeSource{urls: []string{"http://s1:8761/"}}
	manager := testManager(config.ClientConfig{}, new(fakeFactory), bad, good)

	manager.Refresh(context.Background())

	if !slices.Equal(manager.Snapshot().URLs(), []string{"http://s1:8761/"}) {
		t.Errorf("expected the healthy source's urls, got %v", manager.Snapshot().URLs())
	}
}

func TestHandleConfigChange(t *testing.T) {
	manager := testManager(config.ClientConfig{
		ServiceURLs: map[string][]string{
			config.DefaultZone: {"http://a:8761/"},
		},
	}, new(fakeFactory))

	manager.HandleConfigChange(confwatch.ChangeEvent{Keys: []string{"client.username"}})
	if manager.Snapshot().Len() != 0 {
		t.Error("an irrelevant change must not refresh")
	}

	manager.HandleConfigChange(confwatch.ChangeEvent{Keys: []string{"client.service-url.default"}})
	if manager.Snapshot().Len() != 1 {
		t.Error("a relevant change must refresh")
	}
}

func TestShutdown(t *testing.T) {
	factory := new(fakeFactory)
	manager := testManager(config.ClientConfig{}, factory)
	manager.Update([]string{"http://a:8761/"})

	manager.Shutdown()
	if manager.Snapshot().Len() != 0 {
		t.Error("expected an empty set after shutdown")
	}
	if factory.closers["http://a:8761/"].closes != 1 {
		t.Error("expected the node to be shut down")
	}

	manager.Shutdown() // safe to repeat
}

func httpFactory() Factory {
	registry := codecs.NewRegistry()
	registry.RegisterDefaults()
	return NewFactory(config.ServerConfig{}.WithDefaults(), registry, nil, nil)
}

func TestFetch_FirstHealthyPeerWins(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]instance.Info{
			{ID: "i-1", App: "billing", Status: instance.StatusUp},
		})
	}))
	defer good.Close()

	manager := testManager(config.ClientConfig{}, httpFactory())
	manager.Update([]string{bad.URL, good.URL})

	infos, err := manager.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].ID != "i-1" {
		t.Errorf("unexpected registrations %#v", infos)
	}
}

func TestFetch_NoPeers(t *testing.T) {
	manager := testManager(config.ClientConfig{}, new(fakeFactory))
	if _, err := manager.Fetch(context.Background()); !errors.Is(err, registry.ErrNoPeers) {
		t.Errorf("expected ErrNoPeers, got %v", err)
	}
}

func TestReplicate_FansOutToEveryPeer(t *testing.T) {
	hits := make(chan string, 4)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Method + " " + r.URL.Path
	})
	s1 := httptest.NewServer(handler)
	defer s1.Close()
	s2 := httptest.NewServer(handler)
	defer s2.Close()

	manager := testManager(config.ClientConfig{}, httpFactory())
	manager.Update([]string{s1.URL, s2.URL})

	// a dead caller context must not stop the fan-out
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	manager.Replicate(ctx, instance.ActionRegister, instance.Info{ID: "i-1", App: "billing"})

	for i := 0; i < 2; i++ {
		select {
		case hit := <-hits:
			if hit != "POST /instances/billing" {
				t.Errorf("unexpected replication request %q", hit)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the fan-out")
		}
	}
}

func TestWatch_SourcePushTriggersRefresh(t *testing.T) {
	updates := make(chan []string, 1)
	source := &pushSource{urls: []string{"http://p1:8761/"}, updates: updates}
	manager := testManager(config.ClientConfig{}, new(fakeFactory), source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer manager.Shutdown()

	if manager.Snapshot().Len() != 1 {
		t.Fatalf("expected the initial refresh to apply, got %d nodes", manager.Snapshot().Len())
	}

	source.set([]string{"http://p1:8761/", "http://p2:8761/"})
	updates <- nil

	deadline := time.After(5 * time.Second)
	for manager.Snapshot().Len() != 2 {
		select {
		case <-deadline:
			t.Fatal("the peer set never caught up with the source push")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

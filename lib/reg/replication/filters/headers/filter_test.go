package headers

import (
	"net/http"
	"testing"

	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func TestFilter_SetsHeaders(t *testing.T) {
	filter := &Filter{
		Headers: map[string]string{
			"X-Datacenter":  "nyc3",
			"Authorization": "Bearer token",
		},
	}

	var seen http.Header
	base := replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header
		return &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       http.NoBody,
		}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://peer1:8761/instances", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "stale")

	if _, err := filter.Apply(base).RoundTrip(req); err != nil {
		t.Fatal(err)
	}

	if seen.Get("X-Datacenter") != "nyc3" {
		t.Errorf("expected the static header, got %q", seen.Get("X-Datacenter"))
	}
	if seen.Get("Authorization") != "Bearer token" {
		t.Errorf("expected the configured header to replace the stale one, got %q", seen.Get("Authorization"))
	}
}

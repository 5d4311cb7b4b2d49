package gzip

import (
	"bytes"
	"io"
	"net/http"

	"github.com/caddyserver/caddy/v2"
	"github.com/klauspost/compress/gzip"

	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func init() {
	caddy.RegisterModule((*Filter)(nil))
}

// Filter gzips request bodies and transparently decompresses gzipped
// responses. Useful when replicating large registration sets across
// datacenters.
type Filter struct {
	// Level is the compression level, 1 (fastest) to 9 (best). 0 means the
	// library default.
	Level int `json:"level,omitempty"`
}

func (T *Filter) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.replication.filters.gzip",
		New: func() caddy.Module {
			return new(Filter)
		},
	}
}

func (T *Filter) FilterName() string {
	return "gzip"
}

func (T *Filter) level() int {
	if T.Level == 0 {
		return gzip.DefaultCompression
	}
	return T.Level
}

func (T *Filter) compress(req *http.Request) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	_ = req.Body.Close()

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, T.level())
	if err != nil {
		return err
	}
	if _, err = w.Write(body); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}

	req.Body = io.NopCloser(&buf)
	req.ContentLength = int64(buf.Len())
	req.Header.Set("Content-Encoding", "gzip")
	return nil
}

type gzipReadCloser struct {
	*gzip.Reader
	under io.Closer
}

func (T gzipReadCloser) Close() error {
	err := T.Reader.Close()
	if err2 := T.under.Close(); err == nil {
		err = err2
	}
	return err
}

func (T *Filter) Apply(next http.RoundTripper) http.RoundTripper {
	return replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Body != nil && req.ContentLength != 0 {
			if err := T.compress(req); err != nil {
				return nil, err
			}
		}
		req.Header.Set("Accept-Encoding", "gzip")

		res, err := next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if res.Header.Get("Content-Encoding") == "gzip" {
			r, err := gzip.NewReader(res.Body)
			if err != nil {
				_ = res.Body.Close()
				return nil, err
			}
			res.Body = gzipReadCloser{Reader: r, under: res.Body}
			res.Header.Del("Content-Encoding")
			res.ContentLength = -1
		}
		return res, nil
	})
}

var _ replication.Filter = (*Filter)(nil)
var _ caddy.Module = (*Filter)(nil)

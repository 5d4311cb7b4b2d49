package replication

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gfx.cafe/gfx/regat/lib/reg/codecs"
	"gfx.cafe/gfx/regat/lib/reg/instance"
)

// Client is the outbound transport one peer node uses to exchange
// registrations with its peer. Timeouts, retries and batching live in the
// underlying http.RoundTripper; the client only frames requests with the
// negotiated codec and the filter chain.
//
// The base URL is kept verbatim: a malformed URL surfaces as a request
// error, never as a construction failure.
type Client struct {
	base   string
	codec  codecs.Codec
	codecs *codecs.Registry
	http   http.Client
}

type ClientOptions struct {
	// BaseURL is the peer's fully-qualified base URL.
	BaseURL string

	// Codec frames request and response bodies. Usually the negotiated
	// full-JSON codec.
	Codec codecs.Codec

	// Codecs supplies the converter chain applied to instance payloads.
	Codecs *codecs.Registry

	// Transport is the bottom of the filter chain. nil means
	// http.DefaultTransport.
	Transport http.RoundTripper

	// Filters are applied in order; the first filter sees a request first.
	Filters []Filter

	Timeout time.Duration
}

func NewClient(options ClientOptions) *Client {
	return &Client{
		base:   strings.TrimSuffix(options.BaseURL, "/"),
		codec:  options.Codec,
		codecs: options.Codecs,
		http: http.Client{
			Transport: Chain(options.Transport, options.Filters),
			Timeout:   options.Timeout,
		},
	}
}

func (T *Client) URL() string {
	return T.base
}

// Close releases idle connections held for the peer.
func (T *Client) Close() {
	T.http.CloseIdleConnections()
}

func (T *Client) ref(parts ...string) string {
	return T.base + "/" + strings.Join(parts, "/")
}

func (T *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", T.codec.ContentType())
	}
	req.Header.Set("Accept", T.codec.ContentType())

	res, err := T.http.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_ = res.Body.Close()
		return nil, fmt.Errorf("peer returned %s", res.Status)
	}
	return res, nil
}

// FetchInstances downloads the peer's full registration set.
func (T *Client) FetchInstances(ctx context.Context) ([]instance.Info, error) {
	res, err := T.do(ctx, http.MethodGet, T.ref("instances"), nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	return T.codecs.DecodeInstances(T.codec, res.Body)
}

// Replicate sends one instance change to the peer.
func (T *Client) Replicate(ctx context.Context, action instance.Action, info instance.Info) error {
	var res *http.Response
	var err error
	switch action {
	case instance.ActionCancel:
		res, err = T.do(ctx, http.MethodDelete, T.ref("instances", url.PathEscape(info.App), url.PathEscape(info.ID)), nil)
	case instance.ActionHeartbeat:
		var body bytes.Buffer
		if err = T.codecs.EncodeInstance(T.codec, codecs.WireV2, &body, info); err != nil {
			return err
		}
		res, err = T.do(ctx, http.MethodPut, T.ref("instances", url.PathEscape(info.App), url.PathEscape(info.ID)), body.Bytes())
	default:
		var body bytes.Buffer
		if err = T.codecs.EncodeInstance(T.codec, codecs.WireV2, &body, info); err != nil {
			return err
		}
		res, err = T.do(ctx, http.MethodPost, T.ref("instances", url.PathEscape(info.App)), body.Bytes())
	}
	if err != nil {
		return err
	}
	return res.Body.Close()
}

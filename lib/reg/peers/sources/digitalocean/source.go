package digitalocean

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/caddyserver/caddy/v2"
	"github.com/digitalocean/godo"

	"gfx.cafe/gfx/regat/lib/reg/peers"
)

func init() {
	caddy.RegisterModule((*Source)(nil))
}

// Source resolves peer URLs from DigitalOcean droplets carrying a tag. It
// has no push channel; the manager's reconcile clock re-resolves it.
type Source struct {
	// APIKey authenticates against the DigitalOcean API.
	APIKey string `json:"api_key"`

	// Tag selects the droplets that are cluster members.
	Tag string `json:"tag"`

	// Port the nodes listen on.
	Port int `json:"port"`

	// Private picks the private IPv4 address over the public one.
	Private bool `json:"private,omitempty"`

	// Scheme for built URLs. Defaults to http.
	Scheme string `json:"scheme,omitempty"`

	do *godo.Client
}

func (T *Source) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.peers.sources.digitalocean",
		New: func() caddy.Module {
			return new(Source)
		},
	}
}

func (T *Source) Provision(ctx caddy.Context) error {
	if T.Tag == "" {
		return errors.New("tag is required")
	}
	if T.Port == 0 {
		return errors.New("port is required")
	}
	if T.Scheme == "" {
		T.Scheme = "http"
	}

	T.do = godo.NewFromToken(T.APIKey)
	return nil
}

func (T *Source) URLs(ctx context.Context) ([]string, error) {
	var urls []string

	opt := &godo.ListOptions{PerPage: 200}
	for {
		droplets, res, err := T.do.Droplets.ListByTag(ctx, T.Tag, opt)
		if err != nil {
			return nil, err
		}

		for _, droplet := range droplets {
			var ip string
			if T.Private {
				ip, err = droplet.PrivateIPv4()
			} else {
				ip, err = droplet.PublicIPv4()
			}
			if err != nil || ip == "" {
				continue
			}
			urls = append(urls, T.Scheme+"://"+net.JoinHostPort(ip, strconv.Itoa(T.Port))+"/")
		}

		if res.Links == nil || res.Links.IsLastPage() {
			break
		}
		page, err := res.Links.CurrentPage()
		if err != nil {
			return nil, err
		}
		opt.Page = page + 1
	}

	return urls, nil
}

func (T *Source) Updates() <-chan []string {
	return nil
}

var _ peers.Source = (*Source)(nil)
var _ caddy.Module = (*Source)(nil)
var _ caddy.Provisioner = (*Source)(nil)

package googlecloud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/caddyserver/caddy/v2"
	compute "google.golang.org/api/compute/v1"

	"gfx.cafe/gfx/regat/lib/reg/peers"
)

func init() {
	caddy.RegisterModule((*Source)(nil))
}

// Source resolves peer URLs from Google Compute Engine instances selected
// by a label. Credentials come from the application default chain. No push
// channel; the manager's reconcile clock re-resolves it.
type Source struct {
	// Project and Zone scope the instance listing.
	Project string `json:"project"`
	Zone    string `json:"zone"`

	// LabelKey/LabelValue select the instances that are cluster members.
	LabelKey   string `json:"label_key"`
	LabelValue string `json:"label_value"`

	// Port the nodes listen on.
	Port int `json:"port"`

	// Public picks the NATed address over the internal one.
	Public bool `json:"public,omitempty"`

	// Scheme for built URLs. Defaults to http.
	Scheme string `json:"scheme,omitempty"`

	compute *compute.Service
}

func (T *Source) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.peers.sources.googlecloud",
		New: func() caddy.Module {
			return new(Source)
		},
	}
}

func (T *Source) Provision(ctx caddy.Context) error {
	if T.Project == "" || T.Zone == "" {
		return errors.New("project and zone are required")
	}
	if T.LabelKey == "" {
		return errors.New("label_key is required")
	}
	if T.Port == 0 {
		return errors.New("port is required")
	}
	if T.Scheme == "" {
		T.Scheme = "http"
	}

	service, err := compute.NewService(ctx)
	if err != nil {
		return fmt.Errorf("creating compute service: %v", err)
	}
	T.compute = service
	return nil
}

func (T *Source) URLs(ctx context.Context) ([]string, error) {
	var urls []string

	call := T.compute.Instances.List(T.Project, T.Zone).
		Filter(fmt.Sprintf("labels.%s=%s", T.LabelKey, T.LabelValue))
	err := call.Pages(ctx, func(page *compute.InstanceList) error {
		for _, inst := range page.Items {
			if inst.Status != "RUNNING" {
				continue
			}
			ip := T.address(inst)
			if ip == "" {
				continue
			}
			urls = append(urls, T.Scheme+"://"+net.JoinHostPort(ip, strconv.Itoa(T.Port))+"/")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return urls, nil
}

func (T *Source) Updates() <-chan []string {
	return nil
}

func (T *Source) address(inst *compute.Instance) string {
	for _, iface := range inst.NetworkInterfaces {
		if !T.Public {
			return iface.NetworkIP
		}
		for _, access := range iface.AccessConfigs {
			if access.NatIP != "" {
				return access.NatIP
			}
		}
	}
	return ""
}

var _ peers.Source = (*Source)(nil)
var _ caddy.Module = (*Source)(nil)
var _ caddy.Provisioner = (*Source)(nil)

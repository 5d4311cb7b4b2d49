package codecs

import (
	"encoding/xml"

	"gfx.cafe/gfx/regat/lib/reg/instance"
)

// miniInstance is the compact wire view: enough to route to an instance,
// nothing more.
type miniInstance struct {
	XMLName xml.Name `json:"-" xml:"instance"`

	ID       string          `json:"id" xml:"id"`
	App      string          `json:"app" xml:"app"`
	HostName string          `json:"host_name,omitempty" xml:"host-name,omitempty"`
	IPAddr   string          `json:"ip_addr,omitempty" xml:"ip-addr,omitempty"`
	Port     int             `json:"port,omitempty" xml:"port,omitempty"`
	Status   instance.Status `json:"status" xml:"status"`

	LastDirty int64 `json:"last_dirty,omitempty" xml:"last-dirty,omitempty"`
}

func miniOf(info instance.Info) miniInstance {
	return miniInstance{
		ID:        info.ID,
		App:       info.App,
		HostName:  info.HostName,
		IPAddr:    info.IPAddr,
		Port:      info.Port,
		Status:    info.Status,
		LastDirty: info.LastDirty,
	}
}

// minify maps full instance values onto their compact views. Values the mini
// codecs don't know pass through unchanged.
func minify(v any) any {
	switch val := v.(type) {
	case instance.Info:
		return miniOf(val)
	case *instance.Info:
		return miniOf(*val)
	case []instance.Info:
		out := make([]miniInstance, len(val))
		for i, info := range val {
			out[i] = miniOf(info)
		}
		return out
	default:
		return v
	}
}

package codecs

import (
	"gfx.cafe/gfx/regat/lib/reg/instance"
)

// LegacyStatusConverter downgrades statuses that v1 wire clients do not
// understand. It registers at the highest priority so it sees records before
// any other converter.
type LegacyStatusConverter struct{}

func (LegacyStatusConverter) Name() string {
	return "legacy-status"
}

func (LegacyStatusConverter) Priority() int {
	return PriorityVeryHigh
}

func (LegacyStatusConverter) Convert(version WireVersion, info instance.Info) instance.Info {
	if version != WireV1 {
		return info
	}
	info.Status = info.Status.LegacyWire()
	if info.OverriddenStatus != "" {
		info.OverriddenStatus = info.OverriddenStatus.LegacyWire()
	}
	return info
}

var _ Converter = LegacyStatusConverter{}

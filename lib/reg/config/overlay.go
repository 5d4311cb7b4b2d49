package config

import (
	"strconv"
	"strings"
)

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Overlay returns a copy of the config with any recognized client properties
// applied on top. Property names follow the dotted key table consulted by
// the refresh policy. Unrecognized keys are ignored.
func (T ClientConfig) Overlay(props map[string]string) ClientConfig {
	if len(props) == 0 {
		return T
	}

	// copy the maps so the base snapshot stays immutable
	zones := make(map[string][]string, len(T.AvailabilityZones))
	for k, v := range T.AvailabilityZones {
		zones[k] = v
	}
	urls := make(map[string][]string, len(T.ServiceURLs))
	for k, v := range T.ServiceURLs {
		urls[k] = v
	}
	T.AvailabilityZones = zones
	T.ServiceURLs = urls

	for key, value := range props {
		switch {
		case key == KeyRegion:
			T.Region = value
		case key == KeyUseDNS:
			if b, err := strconv.ParseBool(value); err == nil {
				T.UseDNSForFetchingServiceURLs = b
			}
		case strings.HasPrefix(key, KeyServiceURLPrefix):
			zone := strings.TrimPrefix(key, KeyServiceURLPrefix)
			T.ServiceURLs[zone] = splitList(value)
		case strings.HasPrefix(key, KeyAvailabilityZonesPrefix):
			region := strings.TrimPrefix(key, KeyAvailabilityZonesPrefix)
			T.AvailabilityZones[region] = splitList(value)
		}
	}

	return T
}

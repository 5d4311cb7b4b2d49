package standard

import (
	// base app
	_ "gfx.cafe/gfx/regat/lib/reg"

	// registries
	_ "gfx.cafe/gfx/regat/lib/reg/registries/memory"

	// binders
	_ "gfx.cafe/gfx/regat/lib/reg/binders/digitalocean"

	// peer sources
	_ "gfx.cafe/gfx/regat/lib/reg/peers/sources/digitalocean"
	_ "gfx.cafe/gfx/regat/lib/reg/peers/sources/dns"
	_ "gfx.cafe/gfx/regat/lib/reg/peers/sources/googlecloud"
	_ "gfx.cafe/gfx/regat/lib/reg/peers/sources/kubernetes"

	// replication filters
	_ "gfx.cafe/gfx/regat/lib/reg/replication/filters/basic_auth"
	_ "gfx.cafe/gfx/regat/lib/reg/replication/filters/gzip"
	_ "gfx.cafe/gfx/regat/lib/reg/replication/filters/headers"
	_ "gfx.cafe/gfx/regat/lib/reg/replication/filters/identity"
	_ "gfx.cafe/gfx/regat/lib/reg/replication/filters/otel_tracing"
)

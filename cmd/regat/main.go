package main

import (
	"context"

	caddycmd "github.com/caddyserver/caddy/v2/cmd"
	_ "github.com/caddyserver/caddy/v2/modules/metrics"

	"gfx.cafe/util/go/gotel"

	_ "gfx.cafe/gfx/regat/lib/reg/standard"
)

func main() {
	fn, _ := gotel.InitTracing(context.Background(), gotel.WithServiceName("regat"))
	defer fn(context.Background())

	caddycmd.Main()
}

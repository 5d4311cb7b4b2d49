package main

import (
	"fmt"

	"github.com/caddyserver/caddy/v2"
	caddycmd "github.com/caddyserver/caddy/v2/cmd"

	"gfx.cafe/gfx/regat/lib/reg/codecs"
)

func init() {
	caddycmd.RegisterCommand(caddycmd.Command{
		Name:  "codecs",
		Short: "Prints the wire codecs this build can negotiate",
		Func:  runCodecs,
	})
}

func runCodecs(caddycmd.Flags) (int, error) {
	registry := codecs.NewRegistry()
	registry.RegisterDefaults()

	for _, name := range registry.Names() {
		codec, _ := registry.Get(name)
		fmt.Printf("%s\t%s/%s\t%s\n", name, codec.Format(), codec.Variant(), codec.ContentType())
	}
	return caddy.ExitCodeSuccess, nil
}

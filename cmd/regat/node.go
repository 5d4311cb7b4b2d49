package main

import (
	"errors"
	"os"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig"
	caddycmd "github.com/caddyserver/caddy/v2/cmd"
	"github.com/spf13/cobra"

	"gfx.cafe/gfx/regat/lib/reg"
)

func init() {
	caddycmd.RegisterCommand(caddycmd.Command{
		Name:  "node",
		Usage: "<properties file>",
		Short: "Runs a registry node configured from a properties file",
		CobraFunc: func(cmd *cobra.Command) {
			cmd.Args = cobra.ExactArgs(1)
			cmd.Flags().StringP("hostname", "n", "", "hostname to register as, overriding the environment")
			cmd.RunE = caddycmd.WrapCommandFuncForCobra(runNode)
		},
	})
}

func runNode(flags caddycmd.Flags) (int, error) {
	caddy.TrapSignals()

	file := flags.Arg(0)
	if file == "" {
		return caddy.ExitCodeFailedStartup, errors.New("usage: node <properties file>")
	}
	if _, err := os.Stat(file); err != nil {
		return caddy.ExitCodeFailedStartup, err
	}

	app := reg.App{
		PropertiesFile: file,
	}
	app.Instance.HostName = flags.String("hostname")

	caddyConfig := caddy.Config{
		AppsRaw: caddy.ModuleMap{
			"regat": caddyconfig.JSON(app, nil),
		},
	}

	if err := caddy.Run(&caddyConfig); err != nil {
		return caddy.ExitCodeFailedStartup, err
	}

	select {}
}

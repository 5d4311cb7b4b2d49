package config

import (
	"gfx.cafe/util/go/gun"
)

// Env holds environment overrides applied while initializing environment
// state at bootstrap.
type Env struct {
	Region   string `env:"REGAT_REGION"`
	Zone     string `env:"REGAT_ZONE"`
	NodeName string `env:"REGAT_NODE_NAME"`
}

func LoadEnv() Env {
	var e Env
	gun.Load(&e)
	return e
}

package main

import (
	"gfx.cafe/util/temple"
	"gfx.cafe/util/temple/lib/prayer"
)

func main() {
	var obj any
	temple.RegisterTemplateDir("templates")
	temple.ReadObjectFile(&obj, "wire.yaml")
	temple.Prepare(&prayer.Go{
		Input:   "wire",
		Obj:     obj,
		Package: "instance",
		Output:  "out/wire.gen.go",
	})
	if err := temple.Pray(); err != nil {
		panic(err)
	}
}

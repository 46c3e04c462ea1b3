//go:build tinygo

package main

import (
	"sparkrt/app"
	"sparkrt/hal"
)

func main() {
	app.Run(hal.New(), app.Config{Demo: true, Shell: true, Monitor: true})
}

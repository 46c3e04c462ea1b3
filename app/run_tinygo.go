//go:build tinygo

package app

import (
	"context"

	"sparkrt/hal"
)

// Run boots the system and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL, cfg Config) {
	s, err := New(h, cfg)
	if err == nil {
		err = s.Boot(context.Background())
	}
	if err != nil {
		h.Logger().WriteLineString("sparkrt: " + err.Error())
	}
	select {}
}

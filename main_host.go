//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"sparkrt/app"
	"sparkrt/hal"
)

func main() {
	var cfg hal.HeadlessConfig
	var sys app.Config
	var runFor time.Duration
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.BoolVar(&sys.Virtual, "virtual", false, "Run the kernel on simulated time.")
	flag.BoolVar(&sys.Demo, "demo", true, "Start the demo threads.")
	flag.BoolVar(&sys.Shell, "shell", true, "Run the shell on stdin.")
	flag.BoolVar(&sys.Monitor, "monitor", true, "Draw the thread monitor.")
	flag.DurationVar(&runFor, "run-for", 0, "Halt the kernel after this much kernel time (0 = run forever).")
	flag.Parse()
	sys.HaltAfter = uint64(runFor / time.Microsecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	newSystem := func(h hal.HAL) (hal.System, error) {
		return app.New(h, sys)
	}
	var err error
	if cfg.Enabled {
		err = hal.RunHeadless(ctx, newSystem, cfg)
	} else {
		err = hal.RunWindow(ctx, newSystem)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

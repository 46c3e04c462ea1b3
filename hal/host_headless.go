//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	Ticks   uint64
}

// RunHeadless boots the system without opening a window and steps it Hz
// times per second. It returns when the kernel halts, after Ticks steps, or
// when ctx ends.
func RunHeadless(ctx context.Context, newSystem func(HAL) (System, error), cfg HeadlessConfig) error {
	return runHeadless(ctx, New(), newSystem, cfg)
}

func runHeadless(ctx context.Context, h HAL, newSystem func(HAL) (System, error), cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	sys, err := newSystem(h)
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// A halted kernel stops the ticker too.
		defer cancel()
		return sys.Boot(gctx)
	})
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()

		var tick uint64
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if err := sys.Step(); err != nil {
					return err
				}
				tick++
				if cfg.Ticks > 0 && tick >= cfg.Ticks {
					cancel()
					return nil
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

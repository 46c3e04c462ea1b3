//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"
	"os"

	"sparkrt/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

// RunWindow boots the system and shows its framebuffer in a desktop window.
// It blocks until the window closes or the kernel halts.
func RunWindow(ctx context.Context, newSystem func(HAL) (System, error)) error {
	h := newHost(os.Stdout, os.Stdin)
	sys, err := newSystem(h)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	halted := make(chan struct{})
	g.Go(func() error {
		defer close(halted)
		return sys.Boot(gctx)
	})

	game := &hostGame{h: h, sys: sys, halted: halted}
	ebiten.SetWindowTitle("Spark RT (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	runErr := ebiten.RunGame(game)

	cancel()
	bootErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		return runErr
	}
	if errors.Is(bootErr, context.Canceled) {
		return ctx.Err()
	}
	return bootErr
}

type hostGame struct {
	h      *hostHAL
	sys    System
	halted <-chan struct{}

	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	shown   uint64
}

func (g *hostGame) Update() error {
	select {
	case <-g.halted:
		return ebiten.Termination
	default:
	}
	return g.sys.Step()
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
		g.shown = 0
	}

	if n := fb.snapshotRGB565(g.scratch); n != g.shown {
		g.shown = n
		src := g.scratch
		dst := g.img.Pix
		for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
			r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
			j := (i / 2) * 4
			dst[j+0] = r
			dst[j+1] = gg
			dst[j+2] = b
			dst[j+3] = 0xFF
		}
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}

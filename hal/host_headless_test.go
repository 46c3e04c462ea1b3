//go:build !tinygo

package hal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeSystem struct {
	steps   int
	boot    func(ctx context.Context) error
	stepErr error
}

func (s *fakeSystem) Boot(ctx context.Context) error {
	if s.boot != nil {
		return s.boot(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeSystem) Step() error {
	s.steps++
	return s.stepErr
}

func newTestHost() *hostHAL {
	return newHost(&bytes.Buffer{}, strings.NewReader(""))
}

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	sys := &fakeSystem{}
	err := runHeadless(context.Background(), newTestHost(), func(HAL) (System, error) { return sys, nil }, HeadlessConfig{Hz: 1000, Ticks: 3})
	if err != nil {
		t.Fatalf("runHeadless() err = %v, want nil", err)
	}
	if sys.steps != 3 {
		t.Fatalf("steps = %d, want 3", sys.steps)
	}
}

func TestRunHeadlessKernelHalt(t *testing.T) {
	sys := &fakeSystem{boot: func(context.Context) error { return nil }}
	err := runHeadless(context.Background(), newTestHost(), func(HAL) (System, error) { return sys, nil }, HeadlessConfig{Hz: 1000})
	if err != nil {
		t.Fatalf("runHeadless() err = %v, want nil", err)
	}
}

func TestRunHeadlessErrors(t *testing.T) {
	boom := errors.New("boom")

	sys := &fakeSystem{stepErr: boom}
	err := runHeadless(context.Background(), newTestHost(), func(HAL) (System, error) { return sys, nil }, HeadlessConfig{Hz: 1000})
	if !errors.Is(err, boom) {
		t.Fatalf("runHeadless() with failing Step err = %v, want %v", err, boom)
	}

	err = runHeadless(context.Background(), newTestHost(), func(HAL) (System, error) { return nil, boom }, HeadlessConfig{})
	if !errors.Is(err, boom) {
		t.Fatalf("runHeadless() with failing constructor err = %v, want %v", err, boom)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = runHeadless(ctx, newTestHost(), func(HAL) (System, error) { return &fakeSystem{}, nil }, HeadlessConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runHeadless() with canceled ctx err = %v, want context.Canceled", err)
	}
}

func TestFramebufferPresent(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(255, 0, 0)

	snap := make([]byte, len(fb.Buffer()))
	if n := fb.snapshotRGB565(snap); n != 0 || snap[0] != 0 {
		t.Fatalf("snapshot before Present = %d frames, first byte %#x, want 0 and 0", n, snap[0])
	}
	if err := fb.Present(); err != nil {
		t.Fatalf("Present() err = %v", err)
	}
	if n := fb.snapshotRGB565(snap); n != 1 {
		t.Fatalf("snapshot frames = %d, want 1", n)
	}
	r, g, b := rgb888From565(uint16(snap[0]) | uint16(snap[1])<<8)
	if r != 255 || g != 0 || b != 0 {
		t.Fatalf("pixel = %d,%d,%d, want 255,0,0", r, g, b)
	}
}

func TestHostLoggerAndLED(t *testing.T) {
	var out bytes.Buffer
	h := newHost(&out, nil)
	h.Logger().WriteLineString("a")
	h.Logger().WriteLineBytes([]byte("b"))
	h.LED().High()
	h.LED().High()
	h.LED().Low()
	if got, want := out.String(), "a\nb\nled: HIGH\nled: LOW\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if _, err := h.Serial().Read(make([]byte, 1)); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("Read() without input err = %v, want ErrNotImplemented", err)
	}
}

func TestHostConsoleCooksLines(t *testing.T) {
	var out bytes.Buffer
	h := newHost(&out, strings.NewReader("ps\r\nwak\x7fke 2\n\x08\x08x\x08tail"))

	got, err := io.ReadAll(h.Serial())
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if want := "ps\nwake 2\ntail"; string(got) != want {
		t.Fatalf("console input = %q, want %q", got, want)
	}
	if n, err := h.Serial().Read(make([]byte, 4)); n != 0 || !errors.Is(err, io.EOF) {
		t.Fatalf("Read() after EOF = %d, %v, want 0, EOF", n, err)
	}

	if _, err := h.Serial().Write([]byte("ok\n")); err != nil {
		t.Fatalf("Write() err = %v", err)
	}
	if out.String() != "ok\n" {
		t.Fatalf("console output = %q, want %q", out.String(), "ok\n")
	}
}

func TestCookLineSmallReads(t *testing.T) {
	c := newHostConsole(strings.NewReader("abc\rd\n"), nil)
	var got []byte
	buf := make([]byte, 2)
	for {
		n, err := c.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			break
		}
	}
	if string(got) != "abcd\n" {
		t.Fatalf("two byte reads = %q, want %q", got, "abcd\n")
	}
	if _, err := c.Write([]byte("x")); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("Write() without output err = %v, want ErrNotImplemented", err)
	}
}

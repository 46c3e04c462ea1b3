package hal

import (
	"context"
	"errors"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
//
// Buffer is written by a single kernel thread. Present publishes the
// current contents to the screen.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Serial is the console byte stream. Reads block; they happen outside the
// kernel and are forwarded to threads as interrupts.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// HAL provides the only contact point between the kernel world and the
// outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Serial() Serial
}

// System is a booted kernel as seen by the runners.
type System interface {
	// Boot runs the kernel until it halts, a thread panics or ctx ends.
	Boot(ctx context.Context) error
	// Step is called once per frame from outside the kernel.
	Step() error
}

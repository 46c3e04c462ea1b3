//go:build !tinygo

package hal

import (
	"bufio"
	"io"
	"sync"
)

const (
	asciiBS  = 0x08
	asciiDEL = 0x7f
)

// hostConsole is the serial line of the host build. Input is cooked one line
// at a time: carriage returns are dropped and backspace or delete removes the
// previous byte of the line, as a terminal in raw mode would send them.
type hostConsole struct {
	in      *bufio.Reader
	cooked  []byte
	readErr error

	mu  sync.Mutex
	out io.Writer
}

func newHostConsole(in io.Reader, out io.Writer) *hostConsole {
	c := &hostConsole{out: out}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

// Read is called from a single reader goroutine.
func (c *hostConsole) Read(p []byte) (int, error) {
	if c.in == nil {
		return 0, ErrNotImplemented
	}
	for len(c.cooked) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		line, err := c.in.ReadBytes('\n')
		c.cooked = cookLine(c.cooked[:0], line)
		c.readErr = err
	}
	n := copy(p, c.cooked)
	c.cooked = c.cooked[n:]
	return n, nil
}

func cookLine(dst, line []byte) []byte {
	for _, b := range line {
		switch b {
		case '\r':
		case asciiBS, asciiDEL:
			if len(dst) > 0 {
				dst = dst[:len(dst)-1]
			}
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

func (c *hostConsole) Write(p []byte) (int, error) {
	if c.out == nil {
		return 0, ErrNotImplemented
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

//go:build !tinygo

package kernel

import "runtime/debug"

const maxPanicStack = 8 << 10

func captureStack() []byte {
	s := debug.Stack()
	if len(s) > maxPanicStack {
		s = s[:maxPanicStack]
	}
	return s
}

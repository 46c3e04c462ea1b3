package kernel

import "unsafe"

const (
	stackAlign = 8
	wordSize   = int(unsafe.Sizeof(uintptr(0)))
)

// tcbReserve is kept free at the top of every stack buffer, the space a
// control block takes on targets that store it there.
var tcbReserve = (int(unsafe.Sizeof(Thread{})) + stackAlign - 1) &^ (stackAlign - 1)

// alignStack returns the usable part of stack, or nil when too little remains.
func alignStack(stack []byte) []byte {
	if len(stack) == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(stack)))
	if mis := int(base % stackAlign); mis != 0 {
		skip := stackAlign - mis
		if skip >= len(stack) {
			return nil
		}
		stack = stack[skip:]
	}
	size := len(stack) - tcbReserve
	size -= size % stackAlign
	if size < stackAlign {
		return nil
	}
	return stack[:size:size]
}

func stackWord(stack []byte, off int) *uintptr {
	return (*uintptr)(unsafe.Pointer(&stack[off]))
}

func stackWordIntact(stack []byte, off int) bool {
	if off+wordSize > len(stack) {
		return false
	}
	p := stackWord(stack, off)
	return *p == uintptr(unsafe.Pointer(p))
}

// writeStackMarker stores in every word its own address.
func writeStackMarker(stack []byte) {
	for off := 0; off+wordSize <= len(stack); off += wordSize {
		p := stackWord(stack, off)
		*p = uintptr(unsafe.Pointer(p))
	}
}

func writeStackGuard(stack []byte) {
	p := stackWord(stack, 0)
	*p = uintptr(unsafe.Pointer(p))
}

func stackFree(stack []byte) int {
	off := 0
	for stackWordIntact(stack, off) {
		off += wordSize
	}
	return off
}

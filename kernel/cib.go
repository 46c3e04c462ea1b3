package kernel

// cib is a circular index buffer. It hands out slot indices into a
// caller-owned array whose length is a power of two.
type cib struct {
	read  uint
	write uint
	mask  uint
}

func newCIB(size int) cib {
	if size <= 0 || size&(size-1) != 0 {
		panic("kernel: cib size must be a power of two")
	}
	return cib{mask: uint(size - 1)}
}

func (c *cib) avail() int { return int(c.write - c.read) }

func (c *cib) full() bool { return uint(c.avail()) > c.mask }

// get returns the index of the oldest slot and consumes it, or -1 when empty.
func (c *cib) get() int {
	if c.avail() == 0 {
		return -1
	}
	i := c.read & c.mask
	c.read++
	return int(i)
}

func (c *cib) peek() int {
	if c.avail() == 0 {
		return -1
	}
	return int(c.read & c.mask)
}

// put reserves the next free slot, or returns -1 when full.
func (c *cib) put() int {
	if uint(c.avail()) > c.mask {
		return -1
	}
	i := c.write & c.mask
	c.write++
	return int(i)
}

package cpu

import "sparkrt/kernel"

const (
	irqEnabled kernel.IRQState = iota
	irqMasked
)

func (c *CPU) DisableIRQ() kernel.IRQState {
	if c.masked {
		return irqMasked
	}
	c.hw = hwDisable()
	c.masked = true
	return irqEnabled
}

// RestoreIRQ unmasks interrupts when state says they were enabled, then
// delivers what was raised meanwhile and performs a deferred switch.
func (c *CPU) RestoreIRQ(state kernel.IRQState) {
	if state == irqMasked || !c.masked {
		return
	}
	c.masked = false
	hwRestore(c.hw)
	c.service()
}

func (c *CPU) InISR() bool { return c.inISR > 0 }

// Interrupt runs fn as an interrupt handler on the calling goroutine, which
// must hold the CPU. With interrupts masked fn is queued instead.
func (c *CPU) Interrupt(fn func()) {
	if c.masked && c.inISR == 0 {
		c.Raise(fn)
		return
	}
	c.isr(fn)
}

func (c *CPU) isr(fn func()) {
	c.inISR++
	fn()
	c.inISR--
	if c.inISR > 0 {
		return
	}
	c.k.EndOfISR()
	if c.pendSV && !c.masked {
		c.switchContext()
	}
}

// Raise queues fn as an interrupt. It is safe for any goroutine; fn runs on
// the thread holding the CPU the next time interrupts are enabled, or in the
// idle thread.
func (c *CPU) Raise(fn func()) {
	c.mu.Lock()
	c.raised = append(c.raised, fn)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *CPU) service() {
	if !c.booted || c.inISR > 0 || c.masked {
		return
	}
	c.deliverRaised()
	if c.pendSV {
		c.switchContext()
	}
}

func (c *CPU) deliverRaised() bool {
	delivered := false
	for {
		c.mu.Lock()
		if len(c.raised) == 0 {
			c.mu.Unlock()
			return delivered
		}
		fn := c.raised[0]
		c.raised[0] = nil
		c.raised = c.raised[1:]
		c.mu.Unlock()

		c.isr(fn)
		delivered = true
	}
}

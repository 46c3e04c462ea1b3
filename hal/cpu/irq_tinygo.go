//go:build tinygo

package cpu

import "runtime/interrupt"

type hwState = interrupt.State

func hwDisable() hwState  { return interrupt.Disable() }
func hwRestore(s hwState) { interrupt.Restore(s) }

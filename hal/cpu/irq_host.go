//go:build !tinygo

package cpu

// On the host the mask is the flag kept by CPU alone.
type hwState struct{}

func hwDisable() hwState  { return hwState{} }
func hwRestore(s hwState) {}

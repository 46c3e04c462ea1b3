package kernel

import "fmt"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

const (
	DefaultPriorityLevels = 16
	// MaxPriorityLevels is bounded by the width of the run-queue bit cache.
	MaxPriorityLevels = 32
)

// Config controls a kernel instance.
type Config struct {
	// PriorityLevels is the number of distinct thread priorities. Zero
	// selects DefaultPriorityLevels.
	PriorityLevels int

	// Clock is optional. Without it runtime accounting stays at zero and
	// timed operations fail with ErrNoClock.
	Clock Clock

	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.PriorityLevels == 0 {
		c.PriorityLevels = DefaultPriorityLevels
	}
	return c
}

// Validate reports whether c describes a usable kernel.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.PriorityLevels < 1 || c.PriorityLevels > MaxPriorityLevels {
		return fmt.Errorf("kernel config: priority levels %d out of range 1..%d", c.PriorityLevels, MaxPriorityLevels)
	}
	return nil
}

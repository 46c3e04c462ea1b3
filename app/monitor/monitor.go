// Package monitor draws the live thread table onto the framebuffer from a
// kernel thread driven by an event queue.
package monitor

import (
	"fmt"

	"sparkrt/hal"
	"sparkrt/internal/buildinfo"
	"sparkrt/kernel"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

type Monitor struct {
	k  *kernel.Kernel
	fb hal.Framebuffer
	d  *fbDisplay
	t  *tinyterm.Terminal

	events kernel.EventQueue
	redraw kernel.Event
	pid    kernel.PID

	frames  uint64
	lastNow uint64
	lastRun map[threadKey]uint64
}

// threadKey survives pid reuse: a new thread on an old pid gets a new serial.
type threadKey struct {
	pid    kernel.PID
	serial uint64
}

func New(k *kernel.Kernel, fb hal.Framebuffer) *Monitor {
	m := &Monitor{
		k:       k,
		fb:      fb,
		d:       newFBDisplay(fb),
		lastRun: make(map[threadKey]uint64),
	}
	m.events.Init(k)
	m.redraw.Handler = func(*kernel.Event) { m.Render() }
	return m
}

// Spawn creates the monitor thread on stack.
func (m *Monitor) Spawn(stack []byte, prio uint8) (kernel.PID, error) {
	pid, err := m.k.CreateThread(stack, prio, kernel.CreateStackMarker, func(any) { m.events.Loop() }, nil, "monitor")
	if err != nil {
		return kernel.PIDUndef, fmt.Errorf("monitor: %w", err)
	}
	m.pid = pid
	return pid, nil
}

// RequestRedraw asks the monitor thread for a new frame. Safe in interrupt
// context. Requests made while one is pending collapse into it.
func (m *Monitor) RequestRedraw() {
	t := m.k.Thread(m.pid)
	if t == nil {
		return
	}
	m.events.Post(&m.redraw, t)
}

// Frames returns how many frames were presented.
func (m *Monitor) Frames() uint64 { return m.frames }

// Rows formats the thread table. CPU shares cover the time since the
// previous call.
func (m *Monitor) Rows() []string {
	var now uint64
	if c := m.k.Clock(); c != nil {
		now = c.Now()
	}
	span := now - m.lastNow
	m.lastNow = now

	snap := m.k.Snapshot()
	shares := m.shares(snap, span)
	rows := make([]string, 0, len(snap)+1)
	rows = append(rows, fmt.Sprintf("%2s %-8s %-8s %3s %6s", "id", "name", "state", "pri", "cpu"))
	for i, ti := range snap {
		mark := ' '
		if ti.Current {
			mark = '*'
		}
		rows = append(rows, fmt.Sprintf("%2d %-8.8s %-8s%c%3d %5.1f%%", ti.PID, ti.Name, ti.Status, mark, ti.Priority, shares[i]))
	}
	return rows
}

// shares returns the percentage of span each thread of snap ran since the
// previous call, and makes snap the new baseline. A thread seen for the first
// time is measured from its creation.
func (m *Monitor) shares(snap []kernel.ThreadInfo, span uint64) []float64 {
	out := make([]float64, len(snap))
	seen := make(map[threadKey]uint64, len(snap))
	for i, ti := range snap {
		key := threadKey{ti.PID, ti.Serial}
		delta := ti.RuntimeTicks
		if last, ok := m.lastRun[key]; ok {
			delta -= last
		}
		seen[key] = ti.RuntimeTicks
		if span > 0 {
			out[i] = float64(delta) * 100 / float64(span)
		}
	}
	m.lastRun = seen
	return out
}

// Render draws one frame and presents it.
func (m *Monitor) Render() {
	if m.d.usable() == nil {
		return
	}
	rows := m.Rows()

	m.fb.ClearRGB(0, 0, 0)
	m.reset()
	fmt.Fprintf(m.t, "Spark RT %s", buildinfo.Short())
	for _, row := range rows {
		fmt.Fprintf(m.t, "\n%s", row)
	}
	m.t.Display()
	m.frames++
}

func (m *Monitor) reset() {
	m.t = tinyterm.NewTerminal(m.d)
	m.t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
}

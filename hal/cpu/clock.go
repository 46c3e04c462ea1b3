package cpu

import (
	"time"

	"golang.org/x/exp/slices"

	"sparkrt/kernel"
)

type armedTimer struct {
	t  *kernel.Timer
	at uint64
}

// virtualClock keeps timers sorted by deadline, FIFO among equal deadlines.
type virtualClock struct {
	now    uint64
	timers []armedTimer
}

func (v *virtualClock) Now() uint64 { return v.now }

func (v *virtualClock) Set(t *kernel.Timer, offset uint64) {
	v.Remove(t)
	at := v.now + offset
	i := slices.IndexFunc(v.timers, func(a armedTimer) bool { return a.at > at })
	if i < 0 {
		i = len(v.timers)
	}
	v.timers = slices.Insert(v.timers, i, armedTimer{t: t, at: at})
}

func (v *virtualClock) Remove(t *kernel.Timer) {
	if i := slices.IndexFunc(v.timers, func(a armedTimer) bool { return a.t == t }); i >= 0 {
		v.timers = slices.Delete(v.timers, i, i+1)
	}
}

func (v *virtualClock) next() (uint64, bool) {
	if len(v.timers) == 0 {
		return 0, false
	}
	return v.timers[0].at, true
}

// advanceTo moves time to at and fires every timer due by then. It runs in
// interrupt context.
func (v *virtualClock) advanceTo(at uint64) {
	if at > v.now {
		v.now = at
	}
	for len(v.timers) > 0 && v.timers[0].at <= v.now {
		a := v.timers[0]
		v.timers = slices.Delete(v.timers, 0, 1)
		a.t.Callback(a.t.Arg)
	}
}

// wallClock fires timers through CPU.Raise from time.AfterFunc goroutines.
type wallClock struct {
	c     *CPU
	start time.Time
	armed map[*kernel.Timer]*time.Timer
}

func newWallClock(c *CPU) *wallClock {
	return &wallClock{c: c, start: time.Now(), armed: make(map[*kernel.Timer]*time.Timer)}
}

func (w *wallClock) Now() uint64 {
	return uint64(time.Since(w.start) / time.Microsecond)
}

func (w *wallClock) Set(t *kernel.Timer, offset uint64) {
	w.Remove(t)
	var tt *time.Timer
	tt = time.AfterFunc(time.Duration(offset)*time.Microsecond, func() {
		w.c.Raise(func() {
			// Stale if t was removed or re-armed since.
			if w.armed[t] != tt {
				return
			}
			delete(w.armed, t)
			t.Callback(t.Arg)
		})
	})
	w.armed[t] = tt
}

func (w *wallClock) Remove(t *kernel.Timer) {
	if tt, ok := w.armed[t]; ok {
		tt.Stop()
		delete(w.armed, t)
	}
}

func (w *wallClock) pending() int { return len(w.armed) }

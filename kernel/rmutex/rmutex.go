// Package rmutex provides a recursive mutex on top of kernel.Mutex.
package rmutex

import (
	"sync/atomic"

	"sparkrt/kernel"
)

// RMutex may be locked repeatedly by the thread that owns it. Each Lock must
// be matched by an Unlock from the same thread.
type RMutex struct {
	mu    kernel.Mutex
	owner atomic.Int32

	// refcount is only touched by the owner.
	refcount uint16
}

// New returns an unlocked recursive mutex bound to k.
func New(k *kernel.Kernel) *RMutex {
	r := &RMutex{}
	r.Init(k)
	return r
}

// Init resets r to unlocked and ownerless.
func (r *RMutex) Init(k *kernel.Kernel) {
	r.mu.Init(k)
	r.owner.Store(int32(kernel.PIDUndef))
	r.refcount = 0
}

// Lock acquires r, blocking while another thread owns it.
func (r *RMutex) Lock() {
	r.lock(false)
}

// TryLock acquires r unless another thread owns it.
func (r *RMutex) TryLock() bool {
	return r.lock(true)
}

func (r *RMutex) lock(try bool) bool {
	me := r.mu.Kernel().CurrentPID()
	if !r.mu.TryLock() && r.Owner() != me {
		if try {
			return false
		}
		r.mu.Lock()
	}
	r.owner.Store(int32(me))
	r.refcount++
	return true
}

// Unlock drops one level of ownership and releases the inner mutex at the
// last one. Unlocking a mutex the caller does not own is fatal.
func (r *RMutex) Unlock() {
	k := r.mu.Kernel()
	me := k.CurrentPID()
	if owner := r.Owner(); owner != me {
		k.Fatalf("rmutex unlock by pid %d, owner is %d", me, owner)
	}
	if r.refcount == 0 {
		k.Fatalf("rmutex unlock with zero refcount")
	}
	r.refcount--
	if r.refcount == 0 {
		r.owner.Store(int32(kernel.PIDUndef))
		r.mu.Unlock()
	}
}

// Owner returns the owning pid, or kernel.PIDUndef.
func (r *RMutex) Owner() kernel.PID {
	return kernel.PID(r.owner.Load())
}

// Count returns how many times the owner holds r.
func (r *RMutex) Count() uint16 {
	return r.refcount
}

package thpool

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"github.com/npc1054657282/thpool/internal/goid"
	"github.com/npc1054657282/thpool/internal/osthread"
)

// Worker is one long-lived worker plus its metadata. Handles are only
// ever passed into tasks and hooks running on that worker, so the
// context slot needs no synchronization beyond program order.
type Worker struct {
	id   int
	name string
	pool *Pool

	// ctxSlot anchors user-managed per-worker context. The pool never
	// inspects it; it exists so tasks on the same worker can share
	// state, such as a reused database connection.
	ctxSlot any

	// holdsHookArgRef tracks whether this worker still holds its
	// reference to the shared hook argument. Only meaningful when a
	// destructor was configured.
	holdsHookArgRef bool
}

// newWorker creates the metadata for worker id. The goroutine itself is
// started separately by New.
func newWorker(p *Pool, id int) *Worker {
	return &Worker{
		id:              id,
		name:            fmt.Sprintf("%s-%x", p.namePrefix, id),
		pool:            p,
		holdsHookArgRef: p.config.HookArgDestructor != nil,
	}
}

// ID returns the worker's dense 0-based id.
func (w *Worker) ID() int {
	return w.id
}

// Name returns the worker's display name, "<prefix>-<hex id>".
func (w *Worker) Name() string {
	return w.name
}

// Context returns the worker's context slot, or nil if unset.
func (w *Worker) Context() any {
	return w.ctxSlot
}

// SetContext stores v in the worker's context slot.
func (w *Worker) SetContext(v any) {
	w.ctxSlot = v
}

// UnsetContext clears the worker's context slot.
func (w *Worker) UnsetContext() {
	w.ctxSlot = nil
}

// UnrefHookArg releases this worker's reference to the shared hook
// argument. When the last reference goes, the destructor runs. Calling
// it again, or without a configured destructor, is a no-op.
//
// Workers that never call it release their reference during Destroy;
// calling it from the end hook moves the destructor up to Shutdown
// time.
func (w *Worker) UnrefHookArg() {
	p := w.pool
	if !w.holdsHookArgRef || p.config.HookArgDestructor == nil {
		return
	}
	w.holdsHookArgRef = false
	if p.hookArgRefs.Add(-1) == 0 {
		p.config.HookArgDestructor(p.config.HookArg)
		p.logger.Debugf("thpool %q: hook argument destructed", p.namePrefix)
	}
}

// destroy tears down worker metadata during pool destroy, after the
// goroutine has exited. The context slot is the user's to clean up (the
// end hook is the place); the pool only settles the hook-arg reference.
func (w *Worker) destroy() {
	if w == nil {
		return
	}
	w.UnrefHookArg()
}

// run is the worker loop.
func (w *Worker) run() {
	p := w.pool

	if p.config.PinOSThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := osthread.SetName(w.name); err != nil {
			p.logger.Warnf("thpool %q: naming thread for worker %s: %v", p.namePrefix, w.name, err)
		}
	}

	// Register as pool-owned so Wait/Shutdown/Destroy can reject calls
	// made from inside a task or hook of this pool.
	gid := goid.ID()
	p.registerOwner(gid)
	defer p.unregisterOwner(gid)

	p.numAlive.Add(1)
	defer p.numAlive.Add(-1)

	if p.config.StartHook != nil {
		w.invoke(func() { p.config.StartHook(p.config.HookArg, w) })
	}

	for p.keepalive.Load() {
		j := p.getJob()
		if j == nil {
			// Only returned once shutdown flipped keepalive.
			break
		}

		p.numWorking.Add(1)
		w.invoke(func() { j.fn(j.arg, w) })
		atomic.AddUint64(&p.metrics.completed, 1)

		// Decrement lock-free so workers finish concurrently; the
		// broadcast pairs with Wait's check under the idle mutex, so a
		// waiter that saw working != 0 is already parked on the cond
		// and cannot miss it.
		if p.numWorking.Add(-1) == 0 {
			p.idleMu.Lock()
			p.allIdle.Broadcast()
			p.idleMu.Unlock()
		}
	}

	if p.config.EndHook != nil {
		w.invoke(func() { p.config.EndHook(w) })
	}
}

// invoke runs a task or hook with panic containment. A panicking task
// still counts as executed and must not take the worker down with it.
func (w *Worker) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p := w.pool
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r)
				return
			}
			p.logger.Errorf("thpool %q: worker %s recovered panic: %v\n%s",
				p.namePrefix, w.name, r, debug.Stack())
		}
	}()
	fn()
}

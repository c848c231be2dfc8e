package thpool

import "sync/atomic"

// State represents pool lifecycle states.
//
// A pool and its passport move through the states in one direction only:
//
//	Unbind → Alive → ShuttingDown → Shutdown → Destroying → Destroyed
//
// New has no failure path after the Unbind → Alive binding, so no
// transition ever moves backward. Transitions happen by compare-and-swap
// on the passport, so exactly one caller wins each lifecycle step.
type State int32

const (
	// StateUnbind means the passport exists but is not bound to a pool.
	StateUnbind State = iota
	// StateAlive means the pool is operational and accepting gated calls.
	StateAlive
	// StateShuttingDown means Shutdown has started: workers are draining
	// out and no new submissions are accepted.
	StateShuttingDown
	// StateShutdown means all workers have exited and the queue is
	// empty, but worker metadata has not been torn down yet.
	StateShutdown
	// StateDestroying means Destroy is tearing the pool down.
	StateDestroying
	// StateDestroyed means the pool is gone; only the passport remains.
	StateDestroyed

	stateCount
)

var stateNames = [...]string{
	"UNBIND",
	"ALIVE",
	"SHUTTING_DOWN",
	"SHUTDOWN",
	"DESTROYING",
	"DESTROYED",
}

func (s State) String() string {
	if s >= 0 && s < stateCount {
		return stateNames[s]
	}
	return "UNKNOWN_STATE"
}

// passportBinding records which pool a passport was bound to. It is
// installed once, right after the binding CAS succeeds, and read by the
// debug surface to reject passports presented against the wrong pool.
type passportBinding struct {
	pool *Pool
	name string
}

// Passport tracks the lifecycle state of one pool together with the
// number of gated API calls currently in flight on it.
//
// A library-owned passport is created by New and stays in place after
// Destroy, recording StateDestroyed.
// A caller-owned passport is created by NewPassport, handed to New via
// WithPassport, and must outlive the pool and every call made through
// the debug surface. Because the debug surface checks the passport
// before dereferencing any pool state, a call made after Destroy is
// reported with ErrInvalidState instead of reaching torn-down
// internals.
type Passport struct {
	state     atomic.Int32
	numAPIUse atomic.Int32
	binding   atomic.Pointer[passportBinding]
}

// NewPassport creates an unbound passport for use with WithPassport and
// the debug surface. The caller owns it and must keep it alive longer
// than the pool it gets bound to.
func NewPassport() *Passport {
	pp := &Passport{}
	pp.state.Store(int32(StateUnbind))
	return pp
}

// Destroy checks a caller-owned passport out of service.
//
// The pool never frees a caller-owned passport, so this is the caller's
// declaration that no further call will present it. It only inspects
// the bound pool's state and warns: retiring a passport while its pool
// is anywhere between Alive and Destroying breaks the lifetime contract
// the debug surface depends on.
func (pp *Passport) Destroy() {
	if pp == nil {
		return
	}
	switch st := pp.loadState(); st {
	case StateUnbind:
		stdlog.Warnf("thpool: destroying an unbound passport; do not bind it to a pool any more")
	case StateDestroyed:
		stdlog.Warnf("thpool: destroying passport of destroyed pool %q; do not use debug apis with it any more", pp.name())
	default:
		stdlog.Errorf("thpool: destroying passport of pool %q still at state %s; calls may reach a torn-down pool", pp.name(), st)
	}
}

// State reports the lifecycle state recorded on the passport.
func (pp *Passport) State() State {
	return pp.loadState()
}

func (pp *Passport) loadState() State {
	return State(pp.state.Load())
}

func (pp *Passport) casState(old, new State) bool {
	return pp.state.CompareAndSwap(int32(old), int32(new))
}

func (pp *Passport) name() string {
	if b := pp.binding.Load(); b != nil {
		return b.name
	}
	return ""
}

// stdlog is the sink for messages that cannot go through a pool's own
// logger, such as passport misuse reported after the pool is gone.
var stdlog = NewDefaultLogger()

// gate wraps every gated operation: it registers the call on the
// passport, rejects it unless the recorded state is Alive, and
// unregisters on the way out. Shutdown waits for the in-flight count to
// reach zero, so a call that made it past the gate never races the
// teardown of the structures it touches.
func gate(pp *Passport, lg Logger, opName string, op func() error) error {
	pp.numAPIUse.Add(1)
	defer pp.numAPIUse.Add(-1)

	if st := pp.loadState(); st != StateAlive {
		lg.Errorf("thpool %q: %s rejected at state %s", pp.name(), opName, st)
		return ErrInvalidState
	}
	return op()
}

package thpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/npc1054657282/thpool/internal/goid"
)

// Polling intervals for the cold lifecycle waits. The counters involved
// are already atomic and the loops run a handful of times per pool
// lifetime, so they poll instead of carrying extra condvars.
const (
	initPollInterval     = 10 * time.Microsecond
	shutdownPollInterval = time.Millisecond
	destroyWaitInterval  = 10 * time.Millisecond
)

// Pool is a fixed-size worker pool consuming jobs from a shared bounded
// FIFO queue.
//
// Its lifecycle is explicit: New brings the pool up Alive, Shutdown
// drains it and stops the workers, Destroy tears the rest down. Wait
// and Reactivate quiesce and resume dispatch in between. Every other
// operation is gated on the Alive state through the pool's passport.
type Pool struct {
	config     Config
	id         string
	namePrefix string

	workers    []*Worker
	numThreads int
	numAlive   atomic.Int32
	numWorking atomic.Int32

	// queueMu guards the job queue; both queue condvars wait on it.
	queueMu       sync.Mutex
	queue         jobQueue
	getJobUnblock *sync.Cond
	putJobUnblock *sync.Cond

	// idleMu pairs with allIdle for Wait. It is the only mutex ever
	// held while taking queueMu; no path acquires them the other way
	// around.
	idleMu  sync.Mutex
	allIdle *sync.Cond

	// keepalive is true for the pool's whole Alive span; Shutdown flips
	// it to stop the worker loops. active gates dispatch and
	// submission: Wait flips it off once drained-and-idle, Reactivate
	// flips it back on.
	keepalive atomic.Bool
	active    atomic.Bool

	hookArgRefs atomic.Int32

	// owners holds the goroutine ids of live workers, so lifecycle
	// calls made from inside a task or hook can be rejected.
	ownerMu sync.RWMutex
	owners  map[uint64]struct{}

	passport          *Passport
	passportUserOwned bool

	logger  Logger
	metrics poolMetrics
}

// poolMetrics tracks pool-wide counters.
type poolMetrics struct {
	submitted uint64 // atomic
	completed uint64 // atomic
	canceled  uint64 // atomic
}

// New creates a pool with the given options and blocks until every
// worker reports in.
//
// Example:
//
//	pool, err := thpool.New(
//	    thpool.WithNamePrefix("crawl"),
//	    thpool.WithNumThreads(4),
//	    thpool.WithQueueMax(256),
//	)
func New(opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		config:     cfg,
		id:         uuid.NewString(),
		namePrefix: cfg.NamePrefix,
		numThreads: cfg.NumThreads,
		queue:      newJobQueue(cfg.QueueMax),
		owners:     make(map[uint64]struct{}, cfg.NumThreads),
		logger:     cfg.Logger,
	}
	p.getJobUnblock = sync.NewCond(&p.queueMu)
	p.putJobUnblock = sync.NewCond(&p.queueMu)
	p.allIdle = sync.NewCond(&p.idleMu)

	// Create or adopt the passport, then bind it. Binding is the CAS
	// Unbind → Alive; a passport that already carries another state was
	// bound elsewhere and is rejected without being touched further.
	if cfg.Passport != nil {
		p.passport = cfg.Passport
		p.passportUserOwned = true
	} else {
		p.passport = NewPassport()
	}
	if !p.passport.casState(StateUnbind, StateAlive) {
		p.logger.Errorf("thpool %q: passport rebind, old binding %q at state %s",
			p.namePrefix, p.passport.name(), p.passport.loadState())
		return nil, ErrRebind
	}
	p.passport.binding.Store(&passportBinding{pool: p, name: p.namePrefix})

	p.keepalive.Store(true)
	p.active.Store(true)

	// With a destructor configured, each worker holds one reference to
	// the hook argument and New holds one more until worker creation
	// has committed.
	if cfg.HookArgDestructor != nil {
		p.hookArgRefs.Store(int32(p.numThreads) + 1)
	}

	for i := 0; i < p.numThreads; i++ {
		w := newWorker(p, i)
		p.workers = append(p.workers, w)
		go w.run()
		p.logger.Debugf("thpool %q: created worker %s", p.namePrefix, w.name)
	}

	// Worker creation committed; drop New's reference. Workers may
	// still be starting up, so the refcount cannot hit zero here unless
	// every worker already released its own.
	if cfg.HookArgDestructor != nil {
		if p.hookArgRefs.Add(-1) == 0 {
			cfg.HookArgDestructor(cfg.HookArg)
			p.logger.Debugf("thpool %q: hook argument destructed by init", p.namePrefix)
		}
	}

	for int(p.numAlive.Load()) != p.numThreads {
		time.Sleep(initPollInterval)
	}

	p.logger.Infof("thpool %q (%s): started %d workers", p.namePrefix, p.id, p.numThreads)
	return p, nil
}

// Submit enqueues one task for execution. It blocks while the queue is
// at its cap or the pool is quiesced, and fails with ErrCanceled if
// Shutdown intervenes. The argument is handed to fn as-is when a worker
// picks the job up.
func (p *Pool) Submit(fn Task, arg any) error {
	return gate(p.passport, p.logger, "submit", func() error {
		return p.submitInner(fn, arg)
	})
}

// Wait blocks until the queue is empty and no worker is executing, then
// quiesces the pool: dispatch and submission stay paused until
// Reactivate. Calling it from one of the pool's own workers fails with
// ErrSelfCall.
func (p *Pool) Wait() error {
	return gate(p.passport, p.logger, "wait", p.waitInner)
}

// Reactivate resumes dispatch and submission after Wait. On a pool that
// was never quiesced it is a no-op.
func (p *Pool) Reactivate() error {
	return gate(p.passport, p.logger, "reactivate", p.reactivateInner)
}

// NumWorking reports how many workers are executing a task right now.
func (p *Pool) NumWorking() (int, error) {
	var n int
	err := gate(p.passport, p.logger, "num_working", func() error {
		n = int(p.numWorking.Load())
		return nil
	})
	return n, err
}

// Stats returns a snapshot of the pool's counters and gauges. Like
// every gated operation it fails with ErrInvalidState once the pool
// left the Alive state.
func (p *Pool) Stats() (Stats, error) {
	var st Stats
	err := gate(p.passport, p.logger, "stats", func() error {
		st = p.statsInner()
		return nil
	})
	return st, err
}

// Shutdown drains the pool and stops all workers: no new work is
// accepted, blocked submitters are unblocked with ErrCanceled, queued
// jobs that no worker picked up are dropped, and every worker runs its
// end hook and exits. Resources are kept for Destroy.
//
// Only an Alive pool can be shut down; the transition is won by exactly
// one caller. Calling it from one of the pool's own workers fails with
// ErrSelfCall.
func (p *Pool) Shutdown() error {
	return p.shutdownInner(p.passport)
}

// Destroy tears down everything Shutdown left behind and retires the
// pool for good. On an Alive pool it logs a warning and shuts down
// first; if a Shutdown is in flight it waits for it. Calling it from
// one of the pool's own workers fails with ErrSelfCall.
//
// After Destroy returns, a caller-owned passport keeps rejecting the
// debug surface with ErrInvalidState; everything else about the pool is
// undefined.
func (p *Pool) Destroy() error {
	return p.destroyInner(p.passport)
}

// NumWorkers returns the planned worker count. It is fixed at New and
// readable at any point in the lifecycle.
func (p *Pool) NumWorkers() int {
	return p.numThreads
}

// Name returns the pool's worker-name prefix.
func (p *Pool) Name() string {
	return p.namePrefix
}

// ID returns the pool's unique instance id.
func (p *Pool) ID() string {
	return p.id
}

// ========================== DEBUG SURFACE ==========================
//
// The debug variants take the caller-owned passport explicitly. The
// passport is checked before anything else, so a call made after the
// pool was destroyed is rejected from the passport's state alone
// instead of reaching into torn-down pool internals.

// SubmitDebug is Submit through a caller-owned passport.
func (p *Pool) SubmitDebug(pp *Passport, fn Task, arg any) error {
	if err := p.checkPassport(pp); err != nil {
		return err
	}
	return gate(pp, p.logger, "submit", func() error {
		return p.submitInner(fn, arg)
	})
}

// WaitDebug is Wait through a caller-owned passport.
func (p *Pool) WaitDebug(pp *Passport) error {
	if err := p.checkPassport(pp); err != nil {
		return err
	}
	return gate(pp, p.logger, "wait", p.waitInner)
}

// ReactivateDebug is Reactivate through a caller-owned passport.
func (p *Pool) ReactivateDebug(pp *Passport) error {
	if err := p.checkPassport(pp); err != nil {
		return err
	}
	return gate(pp, p.logger, "reactivate", p.reactivateInner)
}

// NumWorkingDebug is NumWorking through a caller-owned passport.
func (p *Pool) NumWorkingDebug(pp *Passport) (int, error) {
	if err := p.checkPassport(pp); err != nil {
		return 0, err
	}
	var n int
	err := gate(pp, p.logger, "num_working", func() error {
		n = int(p.numWorking.Load())
		return nil
	})
	return n, err
}

// ShutdownDebug is Shutdown through a caller-owned passport.
func (p *Pool) ShutdownDebug(pp *Passport) error {
	if err := p.checkPassport(pp); err != nil {
		return err
	}
	return p.shutdownInner(pp)
}

// DestroyDebug is Destroy through a caller-owned passport.
func (p *Pool) DestroyDebug(pp *Passport) error {
	if err := p.checkPassport(pp); err != nil {
		return err
	}
	return p.destroyInner(pp)
}

// checkPassport verifies the supplied passport is the one bound to this
// pool. The binding never changes after New, so a mismatch is caller
// confusion, not a race.
func (p *Pool) checkPassport(pp *Passport) error {
	if pp == nil {
		p.logger.Errorf("thpool %q: nil passport", p.namePrefix)
		return ErrPassportMismatch
	}
	b := pp.binding.Load()
	if b == nil || b.pool != p {
		p.logger.Errorf("thpool %q: passport bound to pool %q, match failed", p.namePrefix, pp.name())
		return ErrPassportMismatch
	}
	return nil
}

// ========================= INNER OPERATIONS =========================

func (p *Pool) submitInner(fn Task, arg any) error {
	if fn == nil {
		return ErrNilTask
	}
	if err := p.putJob(&job{fn: fn, arg: arg}); err != nil {
		return err
	}
	atomic.AddUint64(&p.metrics.submitted, 1)
	return nil
}

// putJob enqueues a job, blocking while the pool is quiesced or the
// bounded queue is full. It returns ErrCanceled when shutdown unblocks
// it, with the mutex released and the job not enqueued.
func (p *Pool) putJob(j *job) error {
	p.queueMu.Lock()

	alive := p.keepalive.Load()
	active := p.active.Load()
	for alive && (!active || (p.queue.maxLen > 0 && p.queue.len >= p.queue.maxLen)) {
		p.putJobUnblock.Wait()
		alive = p.keepalive.Load()
		active = p.active.Load()
	}

	// One keepalive check under the lock is enough: Shutdown cannot
	// finish while this call is registered on the passport, so the pool
	// outlives the rest of this critical section.
	if !alive {
		p.queueMu.Unlock()
		atomic.AddUint64(&p.metrics.canceled, 1)
		return ErrCanceled
	}

	p.queue.push(j)
	if p.queue.len == 1 {
		// Broadcast, not signal: a signaled waiter reacquires the mutex
		// in the same race as any competing submitter and the wakeup
		// can be swallowed.
		p.getJobUnblock.Broadcast()
	}

	p.queueMu.Unlock()
	return nil
}

// getJob dequeues one job for a worker, blocking while the queue is
// empty or the pool is quiesced. It returns nil when shutdown unblocks
// it.
func (p *Pool) getJob() *job {
	p.queueMu.Lock()

	alive := p.keepalive.Load()
	for alive && (p.queue.len == 0 || !p.active.Load()) {
		p.getJobUnblock.Wait()
		alive = p.keepalive.Load()
	}

	if !alive {
		p.queueMu.Unlock()
		return nil
	}

	j := p.queue.pull()
	if p.queue.maxLen > 0 && p.queue.len == p.queue.maxLen-1 {
		p.putJobUnblock.Broadcast()
	}

	p.queueMu.Unlock()
	return j
}

func (p *Pool) waitInner() error {
	if p.isOwnerGoroutine() {
		return ErrSelfCall
	}

	// Holding idleMu across the queue-state read and the cond wait
	// closes the missed-wakeup window: a worker's all-idle broadcast
	// also takes idleMu, so it cannot fire between our check and our
	// park. Reading len and working under queueMu gives a consistent
	// snapshot, and flipping active under queueMu serializes the
	// quiesce against in-flight queue operations.
	p.idleMu.Lock()
	for {
		p.queueMu.Lock()
		queueLen := p.queue.len
		working := p.numWorking.Load()
		if queueLen > 0 || working != 0 {
			p.queueMu.Unlock()
			p.allIdle.Wait()
		} else {
			p.active.Store(false)
			p.logger.Debugf("thpool %q: quiesced, queue=%d working=%d", p.namePrefix, queueLen, working)
			p.queueMu.Unlock()
			break
		}
	}
	p.idleMu.Unlock()
	return nil
}

func (p *Pool) reactivateInner() error {
	p.queueMu.Lock()
	p.active.Store(true)
	p.getJobUnblock.Broadcast()
	p.putJobUnblock.Broadcast()
	p.queueMu.Unlock()
	return nil
}

func (p *Pool) shutdownInner(pp *Passport) error {
	if p.isOwnerGoroutine() {
		return ErrSelfCall
	}

	// The state CAS is the gate here: exactly one caller moves the pool
	// out of Alive, everyone else is told what state got in the way.
	if !pp.casState(StateAlive, StateShuttingDown) {
		p.logger.Errorf("thpool %q: cannot shutdown at state %s", pp.name(), pp.loadState())
		return ErrInvalidState
	}

	p.keepalive.Store(false)
	p.active.Store(false)

	// One broadcast on each condvar unblocks every parked worker and
	// submitter; they re-check keepalive and bail out.
	p.queueMu.Lock()
	p.getJobUnblock.Broadcast()
	p.putJobUnblock.Broadcast()
	p.queueMu.Unlock()

	for p.numAlive.Load() != 0 {
		time.Sleep(shutdownPollInterval)
	}

	// Workers are gone; drop whatever they never picked up and release
	// any Wait parked on all-idle before waiting out the API counter,
	// since that waiter is itself registered on it.
	p.queueMu.Lock()
	dropped := p.queue.len
	p.queue.clear()
	p.queueMu.Unlock()
	if dropped > 0 {
		p.logger.Infof("thpool %q: dropped %d queued jobs on shutdown", p.namePrefix, dropped)
	}
	p.idleMu.Lock()
	p.allIdle.Broadcast()
	p.idleMu.Unlock()

	for pp.numAPIUse.Load() != 0 {
		time.Sleep(shutdownPollInterval)
	}

	if !pp.casState(StateShuttingDown, StateShutdown) {
		p.logger.Fatalf("thpool %q: state %s observed after shutdown completed", pp.name(), pp.loadState())
	}
	p.logger.Infof("thpool %q: shutdown complete", p.namePrefix)
	return nil
}

func (p *Pool) destroyInner(pp *Passport) error {
	if p.isOwnerGoroutine() {
		return ErrSelfCall
	}

	for !pp.casState(StateShutdown, StateDestroying) {
		switch st := pp.loadState(); st {
		case StateAlive:
			p.logger.Warnf("thpool %q: not shut down yet, calling Shutdown first is recommended; trying auto shutdown", pp.name())
			// Result deliberately ignored: the retry loop re-reads the
			// state and handles whatever the race produced.
			_ = p.shutdownInner(pp)
		case StateShuttingDown:
			p.logger.Warnf("thpool %q: shutting down, destroy waiting", pp.name())
			time.Sleep(destroyWaitInterval)
		case StateShutdown:
			// Lost the CAS to a state change in between; retry resolves it.
		default:
			p.logger.Errorf("thpool %q: cannot destroy at state %s", pp.name(), st)
			return ErrInvalidState
		}
	}

	for _, w := range p.workers {
		w.destroy()
	}
	p.workers = nil

	if !pp.casState(StateDestroying, StateDestroyed) {
		p.logger.Fatalf("thpool %q: state %s observed after destroy completed", pp.name(), pp.loadState())
	}
	p.logger.Infof("thpool %q: destroyed", p.namePrefix)

	// The passport stays in place either way: it is what keeps a late
	// gated call answering ErrInvalidState instead of reaching the
	// torn-down pool.
	if p.passportUserOwned {
		p.logger.Debugf("thpool %q: caller-owned passport remains live for the debug surface", p.namePrefix)
	}
	return nil
}

func (p *Pool) statsInner() Stats {
	p.queueMu.Lock()
	depth := p.queue.len
	capacity := p.queue.maxLen
	p.queueMu.Unlock()

	return Stats{
		Submitted:     atomic.LoadUint64(&p.metrics.submitted),
		Completed:     atomic.LoadUint64(&p.metrics.completed),
		Canceled:      atomic.LoadUint64(&p.metrics.canceled),
		QueueDepth:    depth,
		QueueCapacity: capacity,
		NumWorkers:    p.numThreads,
		Alive:         int(p.numAlive.Load()),
		Working:       int(p.numWorking.Load()),
	}
}

// ========================= OWNER TRACKING =========================

func (p *Pool) registerOwner(gid uint64) {
	p.ownerMu.Lock()
	p.owners[gid] = struct{}{}
	p.ownerMu.Unlock()
}

func (p *Pool) unregisterOwner(gid uint64) {
	p.ownerMu.Lock()
	delete(p.owners, gid)
	p.ownerMu.Unlock()
}

// isOwnerGoroutine reports whether the calling goroutine is one of this
// pool's workers.
func (p *Pool) isOwnerGoroutine() bool {
	gid := goid.ID()
	p.ownerMu.RLock()
	_, ok := p.owners[gid]
	p.ownerMu.RUnlock()
	return ok
}

// Package thpool provides a fixed-size worker pool with an explicit
// lifecycle, a bounded shared job queue, per-worker context slots, and
// a passport mechanism that turns lifecycle misuse into reported errors.
//
// Unlike pools that scale workers up and down, thpool creates exactly
// NumThreads long-lived workers at New and keeps them until Destroy.
// That makes it a fit for workloads where workers carry expensive
// per-worker state — a database connection, a parser, a cgo handle —
// installed once by a start hook and reused by every task the worker
// runs.
//
// # Quick Start
//
//	pool, err := thpool.New(
//	    thpool.WithNamePrefix("work"),
//	    thpool.WithNumThreads(4),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for i := 0; i < 100; i++ {
//	    err := pool.Submit(func(arg any, w *thpool.Worker) {
//	        fmt.Printf("task %v on %s\n", arg, w.Name())
//	    }, i)
//	    if err != nil {
//	        log.Printf("submit: %v", err)
//	    }
//	}
//
//	pool.Wait()       // drain and quiesce
//	pool.Shutdown()   // stop workers
//	pool.Destroy()    // release everything
//
// # Lifecycle
//
// A pool moves through Alive → ShuttingDown → Shutdown → Destroying →
// Destroyed, one way only. Submit, Wait, Reactivate, NumWorking and
// Stats require the Alive state and return ErrInvalidState otherwise.
// Shutdown drains the pool and stops the workers but frees nothing;
// Destroy tears down the rest. Destroy on an Alive pool logs a warning
// and shuts it down first.
//
// Wait quiesces the pool: after it returns, the queue is empty, no
// worker is executing, and both dispatch and submission are paused.
// Submitters block until Reactivate resumes the pool. Wait, Shutdown
// and Destroy must not be called from a task or hook running on the
// same pool; such calls fail with ErrSelfCall instead of deadlocking.
//
// # Bounded Queue
//
// WithQueueMax caps the job queue. Submitters beyond the cap block
// until a worker makes room, giving natural backpressure; Shutdown
// unblocks them with ErrCanceled.
//
// # Hooks and Worker Context
//
// WithStartHook and WithEndHook run once per worker, around its
// consuming loop. The worker handle passed to hooks and tasks carries a
// context slot (Context, SetContext, UnsetContext) that only code on
// that worker touches:
//
//	thpool.WithStartHook(func(arg any, w *thpool.Worker) {
//	    conn, err := db.Open(arg.(string))
//	    if err == nil {
//	        w.SetContext(conn)
//	    }
//	}),
//	thpool.WithEndHook(func(w *thpool.Worker) {
//	    if conn, ok := w.Context().(*db.Conn); ok {
//	        conn.Close()
//	    }
//	    w.UnsetContext()
//	}),
//
// When WithHookArg configures a destructor, the shared hook argument is
// reference-counted — one reference per worker, one for New — and the
// destructor runs exactly once after the last holder lets go, at the
// latest during Destroy. A worker can release early with UnrefHookArg.
//
// # Passport
//
// Every pool tracks its lifecycle state on a passport. By default the
// pool owns it. A caller who needs to detect use-after-destroy across
// goroutines creates one with NewPassport, passes it via WithPassport,
// keeps it alive longer than the pool, and uses the Debug variants
// (SubmitDebug, WaitDebug, ...) which check the passport before
// touching the pool. A call that arrives after Destroy is answered
// with ErrInvalidState instead of undefined behavior.
//
// # Observability
//
// The pool logs through a leveled Logger (WithLogger) and exports
// Prometheus metrics via NewCollector. Stats returns the same snapshot
// programmatically. WithPinOSThreads locks each worker to an OS thread
// and names it "<prefix>-<hex id>" (best-effort, Linux only) so workers
// are recognizable in a debugger or top.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Worker methods
// (Context and friends) are the exception: they belong to code running
// on that worker, which is the only place worker handles are handed
// out.
package thpool

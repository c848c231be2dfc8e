package thpool_test

import (
	"fmt"
	"log"
	"sync"

	"github.com/npc1054657282/thpool"
)

// The minimal lifecycle: create, submit, drain, tear down.
func Example() {
	pool, err := thpool.New(
		thpool.WithNamePrefix("easy"),
		thpool.WithNumThreads(4),
	)
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 40; i++ {
		err := pool.Submit(func(arg any, w *thpool.Worker) {
			fmt.Printf("task %v on worker %s\n", arg, w.Name())
		}, i)
		if err != nil {
			log.Printf("submit: %v", err)
		}
	}

	pool.Wait()
	pool.Shutdown()
	pool.Destroy()
}

// Workers share one mutex-guarded sink through the hook argument and
// reach it from tasks through their context slot. The destructor on the
// hook argument runs exactly once, after the last worker lets go.
func Example_hooks() {
	type sink struct {
		mu    sync.Mutex
		lines []string
	}

	shared := &sink{}
	pool, err := thpool.New(
		thpool.WithNamePrefix("cplx"),
		thpool.WithNumThreads(4),
		thpool.WithQueueMax(8),
		thpool.WithHookArg(shared, func(arg any) {
			s := arg.(*sink)
			s.mu.Lock()
			fmt.Printf("collected %d lines\n", len(s.lines))
			s.mu.Unlock()
		}),
		thpool.WithStartHook(func(arg any, w *thpool.Worker) {
			// Anchor the shared sink in the worker's context slot so
			// tasks reach it without a closure.
			w.SetContext(arg.(*sink))
		}),
		thpool.WithEndHook(func(w *thpool.Worker) {
			w.UnsetContext()
			w.UnrefHookArg()
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 16; i++ {
		pool.Submit(func(arg any, w *thpool.Worker) {
			s := w.Context().(*sink)
			s.mu.Lock()
			s.lines = append(s.lines, fmt.Sprintf("job %v via %s", arg, w.Name()))
			s.mu.Unlock()
		}, i)
	}

	pool.Wait()
	pool.Reactivate()
	pool.Submit(func(arg any, w *thpool.Worker) {}, nil)

	pool.Wait()
	pool.Shutdown()
	pool.Destroy()
}

package thpool

import "fmt"

// Common errors returned by the pool.
var (
	// ErrInvalidState is returned by every gated operation when the pool
	// is not in the alive state: before init completes, after Shutdown,
	// or after Destroy. With a caller-owned passport the check runs on
	// the passport alone, so a late call is reported instead of touching
	// a torn-down pool.
	//
	// Example:
	//
	//	pool.Destroy()
	//	err := pool.SubmitDebug(passport, task, nil)
	//	if errors.Is(err, thpool.ErrInvalidState) {
	//	    log.Println("pool already gone")
	//	}
	ErrInvalidState = &PoolError{msg: "pool is not alive"}

	// ErrCanceled is returned when a submission blocked in the queue is
	// interrupted by Shutdown. The task was not enqueued and will never
	// run.
	ErrCanceled = &PoolError{msg: "canceled by shutdown"}

	// ErrRebind is returned by New when the supplied passport is already
	// bound to another pool. A passport binds exactly once per lifetime.
	ErrRebind = &PoolError{msg: "passport already bound"}

	// ErrPassportMismatch is returned by the debug surface when the
	// supplied passport is nil or bound to a different pool than the
	// receiver.
	ErrPassportMismatch = &PoolError{msg: "passport does not match pool"}

	// ErrSelfCall is returned when a pool-owned worker invokes Wait,
	// Shutdown or Destroy on its own pool. All three block until the
	// workers go idle or exit, which the calling worker by definition
	// never does.
	ErrSelfCall = &PoolError{msg: "call from a worker of the same pool"}

	// ErrNilTask is returned when submitting a nil task function.
	ErrNilTask = &PoolError{msg: "task is nil"}
)

// PoolError represents an error that occurred within the pool.
//
// PoolError implements the error interface and supports unwrapping via
// errors.Unwrap for use with errors.Is and errors.As.
type PoolError struct {
	msg string // Human-readable error message
	err error  // Underlying error (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("thpool: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("thpool: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *PoolError) Unwrap() error {
	return e.err
}

// errInvalidConfig creates an error for invalid pool configuration.
// This is returned by New when validation fails.
func errInvalidConfig(msg string) error {
	return &PoolError{msg: "invalid config: " + msg}
}

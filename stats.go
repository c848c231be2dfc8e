package thpool

// Stats is a snapshot of pool counters and gauges, taken at the time
// Stats() is called. Counters are read lock-free and may be slightly
// inconsistent with each other during concurrent operation; the queue
// gauges are read under the queue mutex and are exact.
type Stats struct {
	// Submitted is the total number of tasks accepted since creation.
	Submitted uint64

	// Completed is the total number of tasks that finished execution,
	// including tasks that panicked and were contained.
	Completed uint64

	// Canceled is the total number of submissions unblocked and
	// rejected by shutdown while waiting for queue space.
	Canceled uint64

	// QueueDepth is the number of jobs currently queued, not counting
	// jobs being executed.
	QueueDepth int

	// QueueCapacity is the configured queue cap; 0 means unbounded.
	QueueCapacity int

	// NumWorkers is the planned worker count, fixed at creation.
	NumWorkers int

	// Alive is the number of workers currently running their loop.
	Alive int

	// Working is the number of workers currently executing a task.
	Working int
}

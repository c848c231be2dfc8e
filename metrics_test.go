package thpool

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Gauges(t *testing.T) {
	pool, err := New(WithNamePrefix("m"), WithNumThreads(2), WithQueueMax(8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer destroyPool(t, pool)

	c := NewCollector(pool)

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	const n = 10
	for i := 0; i < n; i++ {
		if err := pool.Submit(func(any, *Worker) {}, nil); err != nil {
			t.Fatalf("Submit error = %v", err)
		}
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	expected := fmt.Sprintf(`
# HELP thpool_threads_alive Number of workers currently running their loop.
# TYPE thpool_threads_alive gauge
thpool_threads_alive{pool="m",pool_id="%s"} 2
# HELP thpool_tasks_submitted_total Total number of tasks accepted.
# TYPE thpool_tasks_submitted_total counter
thpool_tasks_submitted_total{pool="m",pool_id="%s"} %d
# HELP thpool_tasks_completed_total Total number of tasks that finished execution.
# TYPE thpool_tasks_completed_total counter
thpool_tasks_completed_total{pool="m",pool_id="%s"} %d
`, pool.ID(), pool.ID(), n, pool.ID(), n)

	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"thpool_threads_alive",
		"thpool_tasks_submitted_total",
		"thpool_tasks_completed_total",
	)
	if err != nil {
		t.Errorf("GatherAndCompare() error = %v", err)
	}
}

func TestCollector_MetricCount(t *testing.T) {
	pool, err := New(WithNamePrefix("m"), WithNumThreads(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer destroyPool(t, pool)

	c := NewCollector(pool)
	if got := testutil.CollectAndCount(c); got != 7 {
		t.Errorf("CollectAndCount() = %d metrics, want 7", got)
	}
}

func TestCollector_SilentAfterDestroy(t *testing.T) {
	pp := NewPassport()
	pool, err := New(WithNamePrefix("m"), WithNumThreads(1), WithPassport(pp))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c := NewCollector(pool)

	if err := pool.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := pool.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("CollectAndCount() after Destroy = %d metrics, want 0", got)
	}
}

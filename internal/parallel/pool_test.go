package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestWorkerPool_Dispatch(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n = 1000
	var hits [n]atomic.Int32
	pool.Dispatch(n, func(i int) {
		hits[i].Add(1)
	})

	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("job %d ran %d times, want 1", i, got)
		}
	}
}

func TestWorkerPool_DispatchEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	var ran atomic.Bool
	pool.Dispatch(0, func(int) { ran.Store(true) })
	pool.Dispatch(-1, func(int) { ran.Store(true) })
	pool.Dispatch(5, nil)

	if ran.Load() {
		t.Error("no job should run")
	}
}

func TestWorkerPool_DispatchRepeated(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var total atomic.Int64
	for range 50 {
		pool.Dispatch(37, func(i int) {
			total.Add(int64(i))
		})
	}
	if want := int64(50 * 36 * 37 / 2); total.Load() != want {
		t.Errorf("total = %d, want %d", total.Load(), want)
	}
}

func TestWorkerPool_UnevenJobs(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var slow, fast atomic.Int64
	start := time.Now()
	pool.Dispatch(100, func(i int) {
		if i%10 == 0 {
			time.Sleep(5 * time.Millisecond)
			slow.Add(1)
			return
		}
		fast.Add(1)
	})

	if slow.Load() != 10 || fast.Load() != 90 {
		t.Errorf("slow = %d, fast = %d, want 10 and 90", slow.Load(), fast.Load())
	}
	t.Logf("Elapsed time: %v", time.Since(start))
}

func TestWorkerPool_SingleWorker(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	var count atomic.Int32
	pool.Dispatch(64, func(int) { count.Add(1) })
	if count.Load() != 64 {
		t.Errorf("count = %d, want 64", count.Load())
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestWorkerPool_DispatchAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var ran atomic.Bool
	pool.Dispatch(10, func(int) { ran.Store(true) })
	if ran.Load() {
		t.Error("Dispatch on a closed pool should not run jobs")
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	for range 5 {
		pool := NewWorkerPool(4)
		pool.Dispatch(100, func(int) {})
		pool.Close()
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)

	if final := runtime.NumGoroutine(); final > baseline+2 {
		t.Errorf("goroutine count: baseline=%d, final=%d (leak detected)", baseline, final)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkWorkerPool_Dispatch(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	b.ReportAllocs()
	for b.Loop() {
		pool.Dispatch(510, func(int) {})
	}
}

package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsEnqueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(2, 8)
	p.Start(ctx)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Enqueue(Job{Name: "t", Run: func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}})
	}
	wg.Wait()
	if got := ran.Load(); got != 10 {
		t.Fatalf("ran = %d, want 10", got)
	}

	cancel()
	p.Wait()
}

func TestPool_OverflowStillRuns(t *testing.T) {
	// One worker, one queue slot, worker blocked: further jobs must overflow
	// onto their own goroutines instead of blocking Enqueue.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPool(1, 1)
	p.Start(ctx)

	release := make(chan struct{})
	p.Enqueue(Job{Name: "blocker", Run: func(context.Context) { <-release }})

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		done := make(chan struct{})
		p.Enqueue(Job{Name: "overflow", Run: func(context.Context) {
			defer wg.Done()
			ran.Add(1)
			close(done)
		}})
		// Enqueue must have returned immediately; nothing to assert beyond
		// not deadlocking here.
		_ = done
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("overflow jobs did not run; ran=%d", ran.Load())
	}
	close(release)
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPool(1, 4)
	p.Start(ctx)

	p.Enqueue(Job{Name: "bad", Run: func(context.Context) { panic("boom") }})

	done := make(chan struct{})
	p.Enqueue(Job{Name: "good", Run: func(context.Context) { close(done) }})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker died after panic")
	}
}

func TestPool_StartIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(2, 4)
	p.Start(ctx)
	p.Start(ctx) // second call must not spawn extra workers

	cancel()
	p.Wait() // returns only if exactly the first Start's workers registered
}

func TestPool_JobsReceiveBaseContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := NewPool(1, 4)
	p.Start(ctx)

	got := make(chan any, 1)
	p.Enqueue(Job{Name: "ctx", Run: func(jctx context.Context) {
		got <- jctx.Value(ctxKey{})
	}})

	select {
	case v := <-got:
		if v != "marker" {
			t.Fatalf("job context value = %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job never ran")
	}
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(i)
	}

	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pool.Submit(n)
		}(i)
	}
	wg.Wait()

	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_OnError(t *testing.T) {
	var mu sync.Mutex
	var failed []string

	processor := func(ctx context.Context, job string) error {
		if job == "bad" {
			return errors.New("insert failed")
		}
		return nil
	}

	pool := NewWorkerPool(2, 4, processor)
	pool.OnError(func(job string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, job+": "+err.Error())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for _, j := range []string{"ok", "bad", "ok"} {
		pool.Submit(j)
	}
	pool.Stop()

	if len(failed) != 1 || failed[0] != "bad: insert failed" {
		t.Errorf("expected one failure for 'bad', got %v", failed)
	}
}

func TestWorkerPool_ZeroWorkersDefaultsToOne(t *testing.T) {
	var processed atomic.Int64
	pool := NewWorkerPool(0, 3, func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	for i := 0; i < 3; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if processed.Load() != 3 {
		t.Errorf("expected 3 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("processed %d jobs before shutdown", processed.Load())
}

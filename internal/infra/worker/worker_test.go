//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stock-metadata-generator/internal/infra/logging"
)

func TestRunChunked_BarrierBetweenChunks(t *testing.T) {
	const n, size = 8, 6
	var mu sync.Mutex
	started := make([]time.Time, n)
	finished := make([]time.Time, n)

	RunChunked(context.Background(), n, size, func(ctx context.Context, i int) {
		mu.Lock()
		started[i] = time.Now()
		mu.Unlock()
		d := 5 * time.Millisecond
		if i == 2 {
			d = 60 * time.Millisecond // slowest member of the first chunk
		}
		time.Sleep(d)
		mu.Lock()
		finished[i] = time.Now()
		mu.Unlock()
	})

	var lastFirstChunk time.Time
	for i := 0; i < size; i++ {
		if finished[i].After(lastFirstChunk) {
			lastFirstChunk = finished[i]
		}
	}
	for i := size; i < n; i++ {
		if started[i].Before(lastFirstChunk) {
			t.Fatalf("item %d started before the first chunk settled", i)
		}
	}
}

func TestRunChunked_ParallelWithinChunk(t *testing.T) {
	var cur, peak int32
	RunChunked(context.Background(), 6, 3, func(ctx context.Context, i int) {
		c := atomic.AddInt32(&cur, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if c <= p || atomic.CompareAndSwapInt32(&peak, p, c) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&cur, -1)
	})
	if peak != 3 {
		t.Fatalf("expected 3 concurrent calls per chunk, saw %d", peak)
	}
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var wg sync.WaitGroup
	var ran int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
			if i == 0 {
				return errors.New("logged, not fatal")
			}
			if i == 1 {
				panic("recovered")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	wg.Wait()
	p.Stop()
	if ran != 4 {
		t.Fatalf("expected 4 tasks to run, got %d", ran)
	}
	if err := p.Submit(nil); err == nil {
		t.Fatal("nil task must be rejected")
	}
}

func TestPool_SubmitWhenSaturated(t *testing.T) {
	p := NewPool(1, logging.Nop()) // not started: queue only
	for i := 0; i < 4; i++ {
		if err := p.Submit(func(context.Context) error { return nil }); err != nil {
			t.Fatalf("queue slot %d: %v", i, err)
		}
	}
	if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

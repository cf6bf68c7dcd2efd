package workerpool

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

func TestWorkerPoolProcessesAllJobs(t *testing.T) {
	logger := logster.Wrap(zaptest.NewLogger(t).Sugar())
	wp := NewWorkerPool(3, logger, "square", func(_ context.Context, n int) int { return n * n })

	ctx := context.Background()
	wp.Start(ctx)
	go func() {
		for i := 1; i <= 10; i++ {
			wp.AddJob(ctx, i)
		}
		wp.Close()
	}()

	var got []int
	for r := range wp.Results() {
		got = append(got, r)
	}
	sort.Ints(got)

	if len(got) != 10 {
		t.Fatalf("expected 10 results, got %d", len(got))
	}
	for i, v := range got {
		if want := (i + 1) * (i + 1); v != want {
			t.Errorf("result[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	var active, peak atomic.Int32

	logger := logster.Wrap(zaptest.NewLogger(t).Sugar())
	wp := NewWorkerPool(workers, logger, "bounded", func(_ context.Context, n int) int {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return n
	})

	ctx := context.Background()
	wp.Start(ctx)
	go func() {
		for i := 0; i < 8; i++ {
			wp.AddJob(ctx, i)
		}
		wp.Close()
	}()

	count := 0
	for range wp.Results() {
		count++
	}

	if count != 8 {
		t.Errorf("expected 8 results, got %d", count)
	}
	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrency %d exceeds %d workers", p, workers)
	}
}

func TestWorkerPoolCancelledAddJob(t *testing.T) {
	logger := logster.Wrap(zaptest.NewLogger(t).Sugar())
	wp := NewWorkerPool(1, logger, "cancel", func(_ context.Context, n int) int { return n })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// workers never started, so only ctx can unblock AddJob
	if wp.AddJob(ctx, 1) {
		t.Error("expected AddJob to report rejection on cancelled context")
	}
}

func TestWorkerPoolMinimumOneWorker(t *testing.T) {
	logger := logster.Wrap(zaptest.NewLogger(t).Sugar())
	wp := NewWorkerPool(0, logger, "min", func(_ context.Context, n int) int { return n })
	if wp.numWorkers != 1 {
		t.Errorf("expected numWorkers clamped to 1, got %d", wp.numWorkers)
	}
}

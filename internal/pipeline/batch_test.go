package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
)

func jobWith(t *testing.T, name string, execute func(ctx context.Context, b *filter.Base, store datastore.Store)) Job {
	t.Helper()

	p := New(WithName(name))
	m := newMock(name)
	m.executeFunc = execute
	mustPush(t, p, m)
	return Job{Pipeline: p, Store: datastore.NewMemory()}
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor()

		if bp.Concurrency() != 10 {
			t.Errorf("expected default concurrency 10, got %d", bp.Concurrency())
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if got := NewBatchProcessor(WithConcurrency(5)).Concurrency(); got != 5 {
			t.Errorf("expected concurrency 5, got %d", got)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if got := NewBatchProcessor(WithConcurrency(0)).Concurrency(); got != 10 {
			t.Errorf("expected concurrency 10, got %d", got)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(WithBatchLogger(nil)); bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("runs every job and keeps job order", func(t *testing.T) {
		t.Parallel()

		var executed atomic.Int32
		count := func(context.Context, *filter.Base, datastore.Store) { executed.Add(1) }
		jobs := []Job{
			jobWith(t, "first", count),
			jobWith(t, "second", count),
			jobWith(t, "third", count),
		}

		results, err := NewBatchProcessor().ProcessBatch(context.Background(), jobs)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if executed.Load() != 3 {
			t.Errorf("expected 3 executions, got %d", executed.Load())
		}
		for i, want := range []string{"first", "second", "third"} {
			if results[i].PipelineName != want {
				t.Errorf("result[%d]: got %q, expected %q", i, results[i].PipelineName, want)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		var mu sync.Mutex
		work := func(context.Context, *filter.Base, datastore.Store) {
			n := current.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
		}

		jobs := make([]Job, 8)
		for i := range jobs {
			jobs[i] = jobWith(t, "job", work)
		}

		if _, err := NewBatchProcessor(WithConcurrency(2)).ProcessBatch(context.Background(), jobs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", peak.Load())
		}
	})

	t.Run("continues after an individual failure", func(t *testing.T) {
		t.Parallel()

		jobs := []Job{
			jobWith(t, "ok", nil),
			jobWith(t, "fail", func(_ context.Context, b *filter.Base, _ datastore.Store) {
				b.SetErrorCondition(-1, "simulated failure")
			}),
			jobWith(t, "also-ok", nil),
		}

		results, err := NewBatchProcessor().ProcessBatch(context.Background(), jobs)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !results[0].Succeeded() || !results[2].Succeeded() {
			t.Error("expected the other jobs to succeed")
		}
		if results[1].Status != Failure.String() {
			t.Errorf("expected Failure for the failing job, got %q", results[1].Status)
		}
		if len(results[1].FailedFilters()) != 1 {
			t.Errorf("expected one failed filter, got %v", results[1].FailedFilters())
		}
	})

	t.Run("preflight jobs do not execute", func(t *testing.T) {
		t.Parallel()

		var executed atomic.Int32
		job := jobWith(t, "check", func(context.Context, *filter.Base, datastore.Store) { executed.Add(1) })
		job.Mode = model.RunModePreflight

		results, err := NewBatchProcessor().ProcessBatch(context.Background(), []Job{job})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if executed.Load() != 0 {
			t.Errorf("expected no executions, got %d", executed.Load())
		}
		if results[0].Mode != model.RunModePreflight || !results[0].Succeeded() {
			t.Errorf("unexpected report %+v", results[0])
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var started atomic.Int32
		slow := func(ctx context.Context, _ *filter.Base, _ datastore.Store) {
			started.Add(1)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}

		jobs := make([]Job, 10)
		for i := range jobs {
			jobs[i] = jobWith(t, "slow", slow)
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		_, err := NewBatchProcessor(WithConcurrency(2)).ProcessBatch(ctx, jobs)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if started.Load() >= int32(len(jobs)) {
			t.Error("expected some jobs not to start after cancellation")
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests callback-based processing.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	jobs := []Job{jobWith(t, "a", nil), jobWith(t, "b", nil)}
	err := NewBatchProcessor().ProcessBatchWithCallback(context.Background(), jobs,
		func(report *model.RunReport, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = report.PipelineName
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "a" || seen[1] != "b" {
		t.Errorf("unexpected callbacks %v", seen)
	}
}

// TestBatchProcessorJobTimeout tests that a job timeout cancels only that job.
func TestBatchProcessorJobTimeout(t *testing.T) {
	t.Parallel()

	slow := jobWith(t, "slow", func(ctx context.Context, _ *filter.Base, _ datastore.Store) {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	})
	slow.Timeout = 20 * time.Millisecond
	quick := jobWith(t, "quick", nil)

	results, err := NewBatchProcessor().ProcessBatch(context.Background(), []Job{slow, quick})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Status != Cancelled.String() {
		t.Errorf("expected the slow job to be cancelled, got %q", results[0].Status)
	}
	if !results[1].Succeeded() {
		t.Errorf("expected the quick job to succeed, got %q", results[1].Status)
	}
}

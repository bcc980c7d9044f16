package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/model"
)

// Job is one independent unit of a batch: a pipeline and the store it
// runs against. Jobs must not share a pipeline or a store.
type Job struct {
	// Name identifies the job in logs. It defaults to the pipeline name.
	Name string

	// Pipeline is the pipeline to run.
	Pipeline *Pipeline

	// Store is the data store the pipeline mutates.
	Store datastore.Store

	// Mode selects a preflight or a full run. The zero value runs.
	Mode model.RunMode

	// Timeout bounds the job. Zero means no limit.
	Timeout time.Duration
}

func (j Job) name() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Pipeline.Name()
}

// BatchProcessor runs independent jobs concurrently.
// A single pipeline stays single-threaded; only separate jobs overlap.
type BatchProcessor struct {
	// concurrency is the maximum number of jobs running at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Default is 10 if not specified. Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency: 10,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured job limit.
func (bp *BatchProcessor) Concurrency() int { return bp.concurrency }

// ProcessBatch runs every job and returns their reports in job order.
// A job that fails or is cancelled still yields a report. The returned
// error is non-nil only when ctx ended before every job started; reports
// of jobs that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.RunReport, error) {
	results := make([]*model.RunReport, len(jobs))
	var mu sync.Mutex

	err := bp.process(ctx, jobs, func(report *model.RunReport, index int) {
		mu.Lock()
		results[index] = report
		mu.Unlock()
	})
	return results, err
}

// ProcessBatchWithCallback runs every job and calls callback with each
// report as soon as its job finishes. The callback is called from the
// goroutine that ran the job and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(report *model.RunReport, index int),
) error {
	return bp.process(ctx, jobs, callback)
}

func (bp *BatchProcessor) process(ctx context.Context, jobs []Job, done func(*model.RunReport, int)) error {
	bp.logger.Info("starting batch processing",
		"total_jobs", len(jobs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			mode := job.Mode
			if mode == "" {
				mode = model.RunModeRun
			}

			bp.logger.Info("running job",
				"job", job.name(),
				"index", i+1,
				"total", len(jobs),
				"mode", string(mode),
			)

			jobCtx, cancel := ctx, context.CancelFunc(func() {})
			if job.Timeout > 0 {
				jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
			}
			report := Record(jobCtx, job.Pipeline, job.Store, mode)
			cancel()
			done(report, i)

			if !report.Succeeded() {
				// A failed job does not stop the others; its report says why.
				bp.logger.Warn("job did not succeed",
					"job", job.name(),
					"status", report.Status,
				)
				return nil
			}

			bp.logger.Info("job completed",
				"job", job.name(),
				"duration", report.Duration(),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_jobs", len(jobs),
		"elapsed", time.Since(startTime),
	)
	return err
}

package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/metrics"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// BatchOptions bounds a batch run: steps are processed in chunks of
// BatchSize with Delay between chunks, at most Concurrency analyses
// in flight within a chunk.
type BatchOptions struct {
	BatchSize   int
	Delay       time.Duration
	Concurrency int
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:   5,
		Delay:       time.Second,
		Concurrency: 3,
	}
}

// BatchProgress is emitted once per completed step, in completion order.
type BatchProgress struct {
	StepID    int64   `json:"step_id"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Result    *Result `json:"result"`
}

// AnalyzeBatch analyzes every step and returns results in input order.
// Individual failures become failed Results; only context cancellation
// stops the run early, leaving the remaining slots nil.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, stepIDs []int64, analyzerType AnalyzerType, opts BatchOptions, onProgress func(BatchProgress)) []*Result {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBatchOptions().Concurrency
	}

	results := make([]*Result, len(stepIDs))

	var mu sync.Mutex
	completed := 0

	sem := make(chan struct{}, opts.Concurrency)

	logger.Info("Batch analysis started",
		zap.Int("steps", len(stepIDs)),
		zap.String("analyzer_type", string(analyzerType)),
		zap.Int("batch_size", opts.BatchSize),
	)

	for chunkStart := 0; chunkStart < len(stepIDs); chunkStart += opts.BatchSize {
		chunkEnd := chunkStart + opts.BatchSize
		if chunkEnd > len(stepIDs) {
			chunkEnd = len(stepIDs)
		}

		var wg sync.WaitGroup
		for i := chunkStart; i < chunkEnd; i++ {
			select {
			case <-ctx.Done():
				wg.Wait()
				return results
			case sem <- struct{}{}:
			}

			wg.Add(1)
			go func(idx int, stepID int64) {
				defer wg.Done()
				defer func() { <-sem }()

				result := a.AnalyzeStep(ctx, stepID, analyzerType)
				results[idx] = result

				status := "error"
				if result.Success {
					status = "success"
				}
				metrics.BatchSteps.WithLabelValues(status).Inc()

				// callback runs under the lock so progress events and
				// counts stay ordered for streaming consumers
				mu.Lock()
				completed++
				if onProgress != nil {
					onProgress(BatchProgress{
						StepID:    stepID,
						Completed: completed,
						Total:     len(stepIDs),
						Result:    result,
					})
				}
				mu.Unlock()
			}(i, stepIDs[i])
		}
		wg.Wait()

		if chunkEnd < len(stepIDs) && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(opts.Delay):
			}
		}
	}

	logger.Info("Batch analysis finished",
		zap.Int("steps", len(stepIDs)),
		zap.Int("completed", completed),
	)

	return results
}

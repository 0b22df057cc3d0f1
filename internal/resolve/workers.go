package resolve

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dtnitsch/placeshelf/pkg/resolver"
)

// DefaultWorkers bounds concurrent resolutions in batch mode. Scrapes share
// one browser, so more workers mostly means more open tabs.
const DefaultWorkers = 4

// Resolver turns shared text into a place. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*resolver.Result, error)
}

// Job is one input to resolve.
type Job struct {
	Index int
	Input string
}

// BatchResult is the outcome of one job.
type BatchResult struct {
	Index  int
	Input  string
	Result *resolver.Result
	Err    error
}

// RunBatch resolves inputs with a fixed pool of workers. Results come back
// in input order.
func RunBatch(ctx context.Context, logger *slog.Logger, r Resolver, inputs []string, workers int) []BatchResult {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	logger.Info("Starting batch resolution", "input_count", len(inputs), "workers", workers)
	var wg sync.WaitGroup
	jobs := make(chan Job, len(inputs))
	results := make(chan BatchResult, len(inputs))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go worker(ctx, w, logger, r, &wg, jobs, results)
	}

	for i, input := range inputs {
		jobs <- Job{Index: i, Input: input}
	}
	close(jobs)

	wg.Wait()
	close(results)
	logger.Info("All resolution workers finished")

	ordered := make([]BatchResult, len(inputs))
	for result := range results {
		ordered[result.Index] = result
	}
	return ordered
}

func worker(ctx context.Context, id int, logger *slog.Logger, r Resolver, wg *sync.WaitGroup, jobs <-chan Job, results chan<- BatchResult) {
	defer wg.Done()
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- BatchResult{Index: job.Index, Input: job.Input, Err: err}
			continue
		}
		logger.Debug("Worker started job", "worker_id", id, "input", job.Input)
		res, err := r.Resolve(ctx, job.Input)
		if err != nil {
			logger.Warn("Worker job failed", "worker_id", id, "input", job.Input, "error", err)
		}
		results <- BatchResult{Index: job.Index, Input: job.Input, Result: res, Err: err}
	}
}

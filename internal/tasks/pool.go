package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 10
)

// Opts configures [Run].
type Opts struct {
	Phase     Phase
	Workers   int     // Concurrent workers (default: 4, max: 10)
	RateLimit float64 // Jobs started per second, 0 for no limit
	Progress  chan<- ProgressUpdate
	// Label names a job in progress messages. Defaults to its fmt %v form.
	Label     func(job any) string
}

// Result pairs a job with the error its run returned.
type Result[J any] struct {
	Job J
	Err error
}

// Failed counts results with a non-nil error.
func Failed[J any](results []Result[J]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

type indexed[J any] struct {
	i   int
	job J
}

// Run calls fn for every job on a pool of workers and returns the results in input order.
//
// Jobs that were never started because ctx ended are absent from the results and
// ctx.Err() is returned alongside the finished ones.
func Run[J any](ctx context.Context, jobs []J, opts Opts, fn func(context.Context, J) error) ([]Result[J], error) {
	if len(jobs) == 0 {
		return nil, ctx.Err()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, MaxWorkers, len(jobs))

	label := opts.Label
	if label == nil {
		label = func(job any) string { return fmt.Sprintf("%v", job) }
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	queue := make(chan indexed[J])
	done := make(chan indexed[Result[J]], len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				err := fn(ctx, item.job)
				done <- indexed[Result[J]]{i: item.i, job: Result[J]{Job: item.job, Err: err}}
			}
		}()
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case queue <- indexed[J]{i: i, job: job}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	slots := make([]*Result[J], len(jobs))
	completed := 0
	for res := range done {
		completed++
		slots[res.i] = &res.job
		if res.job.Err != nil {
			send(opts.Progress, failedUpdate(opts.Phase, completed, len(jobs), label(res.job.Job), res.job.Err))
		} else {
			send(opts.Progress, completedUpdate(opts.Phase, completed, len(jobs), label(res.job.Job)))
		}
	}

	results := make([]Result[J], 0, completed)
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	if completed < len(jobs) {
		return results, ctx.Err()
	}
	return results, nil
}

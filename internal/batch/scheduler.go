// Package batch orchestrates assembly across many (template, value-set)
// pairs with partial-success semantics.
package batch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"stencil/internal/errors"
)

// Job is one (template, value-set) pair submitted for assembly.
type Job struct {
	TemplateID string
	Values     map[string]string
	// Ref is an opaque caller token, carried through to the AssembleFunc.
	Ref string
	// Complexity is the job's placeholder count; any job above the
	// scheduler's threshold forces staged execution for the whole batch.
	Complexity int
}

// Result is the outcome of one job: output bytes or a typed error, never
// both. A batch returns one Result per job, preserving submission order.
type Result struct {
	Output []byte
	Err    error
}

// AssembleFunc produces document bytes for one job. A started job runs to
// completion or failure; it is never interrupted mid-assembly.
type AssembleFunc func(ctx context.Context, job Job) ([]byte, error)

// Scheduler dispatches batches. Small, simple batches run fully
// concurrently; anything larger runs in bounded-concurrency waves so at
// most MaxWorkers decoded templates are resident at once.
type Scheduler struct {
	MaxWorkers          int
	SmallBatchJobs      int
	ComplexityThreshold int
	Logger              *slog.Logger
}

// New creates a Scheduler with the given bounds.
func New(maxWorkers, smallBatchJobs, complexityThreshold int) *Scheduler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Scheduler{
		MaxWorkers:          maxWorkers,
		SmallBatchJobs:      smallBatchJobs,
		ComplexityThreshold: complexityThreshold,
	}
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Batch tracks per-job cancellation state for one submitted batch.
type Batch struct {
	Jobs      []Job
	cancelled []atomic.Bool
	started   []atomic.Bool
}

// NewBatch wraps jobs for submission.
func (s *Scheduler) NewBatch(jobs []Job) *Batch {
	return &Batch{
		Jobs:      jobs,
		cancelled: make([]atomic.Bool, len(jobs)),
		started:   make([]atomic.Bool, len(jobs)),
	}
}

// Cancel marks job i cancelled. It reports whether the mark landed before
// the job started; a job already assembling runs to completion.
func (b *Batch) Cancel(i int) bool {
	if i < 0 || i >= len(b.Jobs) {
		return false
	}
	b.cancelled[i].Store(true)
	return !b.started[i].Load()
}

// Run executes the batch and returns one result per job in submission
// order, regardless of internal completion order. Each job is isolated: a
// failure records its error and never cancels or affects sibling jobs.
// Context cancellation skips jobs that have not started.
func (s *Scheduler) Run(ctx context.Context, b *Batch, fn AssembleFunc) []Result {
	results := make([]Result, len(b.Jobs))
	staged := s.isStaged(b.Jobs)

	log := s.logger()
	log.Info("batch dispatch", "jobs", len(b.Jobs), "staged", staged)

	var eg errgroup.Group
	if staged {
		eg.SetLimit(s.MaxWorkers)
	}

	for i := range b.Jobs {
		eg.Go(func() error {
			if ctx.Err() != nil || b.cancelled[i].Load() {
				results[i] = Result{Err: errors.NewCancelled()}
				return nil
			}
			b.started[i].Store(true)

			out, err := fn(ctx, b.Jobs[i])
			if err != nil {
				log.Warn("batch job failed", "index", i, "template", b.Jobs[i].TemplateID, "error", err)
				results[i] = Result{Err: err}
				return nil
			}
			results[i] = Result{Output: out}
			return nil
		})
	}
	_ = eg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	log.Info("batch complete", "jobs", len(b.Jobs), "succeeded", succeeded)
	return results
}

// isStaged decides between fully concurrent dispatch and bounded waves:
// staging kicks in past the small-batch size or when any single job
// exceeds the complexity threshold.
func (s *Scheduler) isStaged(jobs []Job) bool {
	if len(jobs) > s.SmallBatchJobs {
		return true
	}
	for _, j := range jobs {
		if j.Complexity > s.ComplexityThreshold {
			return true
		}
	}
	return false
}

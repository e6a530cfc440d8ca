// Package dispatch decouples webhook acknowledgement from event processing.
//
// Platforms enforce a short response deadline and retry on slow replies, so
// the webhook handler must acknowledge first and process later. Instead of
// spawning bare goroutines from request handlers, handlers enqueue a Job and
// return; a worker pool owns the processing lifecycle with a background
// context, independent of the request's own resource scope.
//
// Admission control is deliberately absent: when the queue is full the job
// runs on a fresh goroutine rather than blocking or dropping, preserving the
// unbounded in-flight behavior of the processing pipeline. Whether to add
// backpressure here is an open extension point.
package dispatch

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	// jobsEnqueued counts accepted jobs by admission path.
	jobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dispatch_jobs_total",
			Help: "Total number of background jobs accepted for processing.",
		},
		[]string{"path"}, // "queued" or "overflow"
	)

	// jobsInflight gauges jobs currently being processed.
	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_dispatch_jobs_inflight",
			Help: "Current number of background jobs being processed.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsEnqueued, jobsInflight)
}

// Job is one unit of detached work. Run receives the pool's background
// context; panics are recovered and logged so one bad job cannot take a
// worker down.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Pool is a fixed set of workers draining a buffered job queue.
type Pool struct {
	jobs    chan Job
	workers int

	mu      sync.Mutex
	baseCtx context.Context
	started bool
	wg      sync.WaitGroup
}

// NewPool returns a pool with the given worker count and queue buffer.
// Non-positive values default to 4 workers and a 64-slot buffer.
func NewPool(workers, buffer int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Pool{jobs: make(chan Job, buffer), workers: workers}
}

// Start launches the workers. They drain the queue until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.baseCtx = ctx
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-p.jobs:
					p.run(ctx, job)
				}
			}
		}()
	}
}

// Enqueue hands a job to the pool without blocking the caller. When the
// queue is full the job is run on its own goroutine instead.
func (p *Pool) Enqueue(job Job) {
	select {
	case p.jobs <- job:
		jobsEnqueued.WithLabelValues("queued").Inc()
	default:
		jobsEnqueued.WithLabelValues("overflow").Inc()
		ctx := p.base()
		go p.run(ctx, job)
	}
}

// Pending returns the number of jobs waiting in the queue.
func (p *Pool) Pending() int { return len(p.jobs) }

// Wait blocks until all workers have exited (after context cancellation).
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) base() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.baseCtx != nil {
		return p.baseCtx
	}
	return context.Background()
}

func (p *Pool) run(ctx context.Context, job Job) {
	jobsInflight.Inc()
	defer jobsInflight.Dec()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", job.Name).
				Msg("background job panicked")
		}
	}()
	job.Run(ctx)
}

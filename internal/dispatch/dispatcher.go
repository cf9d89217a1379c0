package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
	"lastmile-route-service/internal/services"
)

// RunFunc executes one optimization job. The context carries the solve
// deadline.
type RunFunc func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// ErrQueueFull is returned by Submit when the job queue is at capacity.
var ErrQueueFull = errors.New("job queue is full")

type task struct {
	jobID string
	req   services.OptimizeRequest
}

// Dispatcher runs optimization jobs on a bounded worker pool behind a
// FIFO queue. Submit never blocks on a solve; each job is claimed by
// exactly one worker through the store's compare-and-swap transition.
type Dispatcher struct {
	store        ports.JobStore
	run          RunFunc
	queue        chan task
	workers      int
	solveTimeout time.Duration

	wg       sync.WaitGroup
	mu       sync.Mutex
	stopping bool
}

type Options struct {
	Workers      int           // default 4
	QueueDepth   int           // default 256
	SolveTimeout time.Duration // default 30s
}

func New(store ports.JobStore, run RunFunc, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}
	if opts.SolveTimeout <= 0 {
		opts.SolveTimeout = 30 * time.Second
	}
	return &Dispatcher{
		store:        store,
		run:          run,
		queue:        make(chan task, opts.QueueDepth),
		workers:      opts.Workers,
		solveTimeout: opts.SolveTimeout,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	log.Printf("dispatcher: started workers=%d queue_depth=%d", d.workers, cap(d.queue))
}

// Submit persists a queued job and enqueues it, returning the job id
// immediately. The request must already be validated.
func (d *Dispatcher) Submit(ctx context.Context, req services.OptimizeRequest) (string, error) {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return "", ErrShuttingDown
	}
	d.mu.Unlock()

	job := &domain.Job{
		ID:        uuid.NewString(),
		State:     domain.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("dispatch: create job: %w", err)
	}

	// The guard must span the send: Shutdown closes the queue under the
	// same mutex, so re-checking stopping here makes a send on a closed
	// channel impossible.
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		if err := d.store.FailJob(ctx, job.ID, services.ReasonInternal); err != nil {
			log.Printf("dispatch: job_id=%s fail on shutdown: %v", job.ID, err)
		}
		return "", ErrShuttingDown
	}
	select {
	case d.queue <- task{jobID: job.ID, req: req}:
		d.mu.Unlock()
		return job.ID, nil
	default:
		d.mu.Unlock()
		if err := d.store.FailJob(ctx, job.ID, services.ReasonInternal); err != nil {
			log.Printf("dispatch: job_id=%s fail on full queue: %v", job.ID, err)
		}
		return "", ErrQueueFull
	}
}

// Status reads the job's current state. O(1), never touches the queue.
func (d *Dispatcher) Status(ctx context.Context, id string) (*domain.Job, error) {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dispatch: get job %s: %w", id, err)
	}
	if job == nil {
		return nil, &services.NotFoundError{Resource: "job", ID: id}
	}
	return job, nil
}

// Shutdown stops accepting jobs, lets in-flight solves finish, and
// waits for the workers up to the context deadline. Jobs still queued
// keep their persisted queued state.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return nil
	}
	d.stopping = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()

	for t := range d.queue {
		// Shutdown drains nothing further; queued jobs stay queued.
		d.mu.Lock()
		stopping := d.stopping
		d.mu.Unlock()
		if stopping {
			continue
		}
		d.process(n, t)
	}
}

func (d *Dispatcher) process(n int, t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.solveTimeout)
	defer cancel()

	claimed, err := d.store.StartJob(ctx, t.jobID)
	if err != nil {
		log.Printf("dispatch: worker=%d job_id=%s claim: %v", n, t.jobID, err)
		return
	}
	if !claimed {
		return // already claimed or terminal
	}

	res, err := d.run(ctx, t.req)
	if err != nil {
		reason := services.FailureReason(err)
		log.Printf("dispatch: worker=%d job_id=%s failed reason=%s: %v", n, t.jobID, reason, err)
		if ferr := d.store.FailJob(context.Background(), t.jobID, reason); ferr != nil {
			log.Printf("dispatch: worker=%d job_id=%s persist failure: %v", n, t.jobID, ferr)
		}
		return
	}

	if err := d.store.CompleteJob(context.Background(), t.jobID, res); err != nil {
		log.Printf("dispatch: worker=%d job_id=%s persist result: %v", n, t.jobID, err)
		return
	}
	log.Printf("dispatch: worker=%d job_id=%s done routes=%d distance_km=%.2f",
		n, t.jobID, res.NumRoutes, res.TotalDistanceKm)
}

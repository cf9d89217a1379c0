package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lastmile-route-service/internal/adapters/repositories"
	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
	"lastmile-route-service/internal/services"
)

func waitForTerminal(t *testing.T, store ports.JobStore, id string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job != nil && (job.State == domain.JobDone || job.State == domain.JobFailed) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return nil
}

func TestDispatcherRunsJobToDone(t *testing.T) {
	store := repositories.NewMemoryJobStore()
	want := &domain.OptimizeResult{RouteIDs: []int64{7}, TotalDistanceKm: 12.5, NumRoutes: 1}

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		return want, nil
	}, Options{Workers: 2})
	d.Start()
	defer d.Shutdown(context.Background())

	id, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("Submit returned empty job id")
	}

	job := waitForTerminal(t, store, id)
	if job.State != domain.JobDone {
		t.Fatalf("job state %s (reason %q), want done", job.State, job.Reason)
	}
	if job.Result == nil || job.Result.NumRoutes != 1 || job.Result.RouteIDs[0] != 7 {
		t.Fatalf("job result %+v, want %+v", job.Result, want)
	}
	if job.CompletedAt == nil {
		t.Fatal("done job has no completion time")
	}
}

func TestDispatcherPersistsFailureReason(t *testing.T) {
	store := repositories.NewMemoryJobStore()

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		return nil, &services.InfeasibleError{UnassignedStopIDs: []int64{3}}
	}, Options{Workers: 1})
	d.Start()
	defer d.Shutdown(context.Background())

	id, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForTerminal(t, store, id)
	if job.State != domain.JobFailed {
		t.Fatalf("job state %s, want failed", job.State)
	}
	if job.Reason != "infeasible: unassigned_stops=[3]" {
		t.Fatalf("failure reason %q", job.Reason)
	}
	if job.Result != nil {
		t.Fatalf("failed job carries a result: %+v", job.Result)
	}
}

func TestDispatcherRunsEachJobOnce(t *testing.T) {
	store := repositories.NewMemoryJobStore()
	var runs atomic.Int64

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		runs.Add(1)
		return &domain.OptimizeResult{}, nil
	}, Options{Workers: 4})
	d.Start()

	const n = 20
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		waitForTerminal(t, store, id)
	}
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if got := runs.Load(); got != n {
		t.Fatalf("run function invoked %d times for %d jobs", got, n)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	store := repositories.NewMemoryJobStore()
	started := make(chan struct{}, 4)
	release := make(chan struct{})

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		started <- struct{}{}
		<-release
		return &domain.OptimizeResult{}, nil
	}, Options{Workers: 1, QueueDepth: 1})
	d.Start()
	defer func() {
		close(release)
		d.Shutdown(context.Background())
	}()

	// First job occupies the worker, second fills the queue.
	if _, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	if _, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("got %v, want ErrQueueFull", err)
	}
}

func TestDispatcherShutdownStopsIntake(t *testing.T) {
	store := repositories.NewMemoryJobStore()

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		return &domain.OptimizeResult{}, nil
	}, Options{Workers: 1})
	d.Start()

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1}); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("got %v, want ErrShuttingDown", err)
	}
	// Second shutdown is a no-op.
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("repeated Shutdown: %v", err)
	}
}

func TestDispatcherSubmitDuringShutdownDoesNotPanic(t *testing.T) {
	store := repositories.NewMemoryJobStore()

	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		return &domain.OptimizeResult{}, nil
	}, Options{Workers: 2, QueueDepth: 1})
	d.Start()

	// Submitters race the queue close; every call must return an id or
	// a sentinel, never send on the closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
				if err != nil && !errors.Is(err, ErrQueueFull) && !errors.Is(err, ErrShuttingDown) {
					t.Errorf("Submit: %v", err)
					return
				}
				if errors.Is(err, ErrShuttingDown) {
					return
				}
			}
		}()
	}

	time.Sleep(2 * time.Millisecond)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	wg.Wait()
}

func TestDispatcherStatus(t *testing.T) {
	store := repositories.NewMemoryJobStore()
	d := New(store, func(ctx context.Context, req services.OptimizeRequest) (*domain.OptimizeResult, error) {
		return &domain.OptimizeResult{}, nil
	}, Options{Workers: 1})
	d.Start()
	defer d.Shutdown(context.Background())

	id, err := d.Submit(context.Background(), services.OptimizeRequest{DepotID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := d.Status(context.Background(), id); err != nil {
		t.Fatalf("Status: %v", err)
	}

	var nf *services.NotFoundError
	if _, err := d.Status(context.Background(), "missing"); !errors.As(err, &nf) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lastmile-route-service/internal/domain"
)

// MemoryJobStore keeps job state in process memory. Used in tests and
// when the service runs without Postgres. Same compare-and-swap
// semantics as the Postgres store, enforced under one mutex.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *MemoryJobStore) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job store: job %s already exists", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryJobStore) StartJob(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, fmt.Errorf("job store: job %s not found", id)
	}
	if job.State != domain.JobQueued {
		return false, nil
	}
	job.State = domain.JobRunning
	return true, nil
}

func (s *MemoryJobStore) CompleteJob(_ context.Context, id string, res *domain.OptimizeResult) error {
	return s.finish(id, domain.JobDone, res, "")
}

func (s *MemoryJobStore) FailJob(_ context.Context, id string, reason string) error {
	return s.finish(id, domain.JobFailed, nil, reason)
}

func (s *MemoryJobStore) finish(id string, state domain.JobState, res *domain.OptimizeResult, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job store: job %s not found", id)
	}
	if job.State != domain.JobRunning && job.State != domain.JobQueued {
		return fmt.Errorf("job store: job %s is already %s", id, job.State)
	}
	now := time.Now().UTC()
	job.State = state
	job.CompletedAt = &now
	job.Result = res
	job.Reason = reason
	return nil
}

package ports

import (
	"context"

	"lastmile-route-service/internal/domain"
)

// Port: boundary for job lifecycle state. Implementations must enforce
// the monotonic progression queued -> running -> done | failed with
// compare-and-swap semantics on the state field, and must persist the
// result payload atomically with the done state.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	// StartJob transitions queued -> running. Returns false when the job
	// is not in queued state (claimed by another worker or terminal).
	StartJob(ctx context.Context, id string) (bool, error)
	// CompleteJob transitions running -> done with the result payload.
	CompleteJob(ctx context.Context, id string, res *domain.OptimizeResult) error
	// FailJob transitions running -> failed with a short reason code.
	FailJob(ctx context.Context, id string, reason string) error
}
